// Package service exposes a built engine.Engine as an Arrow Flight/gRPC
// query service: one listener for the Flight RPC, a second for
// Prometheus metrics. This is additive to the one-shot batch CLI in
// cmd/rangeknn.
package service

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rangeknn/hybridindex/internal/engine"
	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/xerrors"
)

// resultSchema describes the single-row record DoGet streams back: one
// fixed-size list column of k uint32 result ids.
func resultSchema(k int) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "ids", Type: arrow.FixedSizeListOf(int32(k), arrow.PrimitiveTypes.Uint32)},
	}, nil)
}

// QueryServer implements flight.FlightServer over a built engine.Engine.
// It embeds flight.BaseFlightServer so every RPC this service doesn't
// override (ListFlights, GetFlightInfo, DoPut, DoExchange, DoAction)
// returns the default Unimplemented status.
type QueryServer struct {
	flight.BaseFlightServer

	eng    *engine.Engine
	mem    memory.Allocator
	logger *slog.Logger
	k      int
}

// NewQueryServer wraps eng as a Flight query service. k is the number of
// result ids returned per query, matching eng's dispatcher configuration.
func NewQueryServer(eng *engine.Engine, k int, logger *slog.Logger) *QueryServer {
	return &QueryServer{
		eng:    eng,
		mem:    memory.NewGoAllocator(),
		logger: logger,
		k:      k,
	}
}

// DoGet accepts a Flight ticket carrying an encoded query row (the same
// layout.Query layout internal/pointio reads from query files) and
// streams back a single-row RecordBatch of the k result ids as a
// fixed-size uint32 list column.
func (s *QueryServer) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	q, err := decodeTicket(tkt.Ticket)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	ids := s.eng.Answer(stream.Context(), q)

	schema := resultSchema(s.k)
	bldr := array.NewFixedSizeListBuilder(s.mem, int32(s.k), arrow.PrimitiveTypes.Uint32)
	defer bldr.Release()

	valBldr := bldr.ValueBuilder().(*array.Uint32Builder)
	bldr.Append(true)
	valBldr.AppendValues(padIDs(ids, s.k), nil)

	arr := bldr.NewArray()
	defer arr.Release()

	rec := array.NewRecord(schema, []arrow.Array{arr}, 1)
	defer rec.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	defer writer.Close()

	if err := writer.Write(rec); err != nil {
		s.logger.Error("DoGet write failed", "error", err)
		return status.Errorf(codes.Internal, "write record: %v", err)
	}
	return nil
}

// padIDs right-pads ids with zeros to exactly n entries, since a
// FixedSizeList column requires every row to carry the declared width
// even when the dispatcher truncated fewer than k results.
func padIDs(ids []uint32, n int) []uint32 {
	if len(ids) >= n {
		return ids[:n]
	}
	out := make([]uint32, n)
	copy(out, ids)
	return out
}

// decodeTicket parses a Flight ticket's raw bytes as a little-endian
// float32 query row — the same wire shape internal/pointio reads from
// query files, reused here so clients can encode a ticket exactly the
// way they'd write a query row to disk.
func decodeTicket(ticket []byte) (layout.Query, error) {
	const wordSize = 4
	if len(ticket)%wordSize != 0 {
		return nil, xerrors.New(xerrors.KindConfiguration, "decodeTicket", "ticket length not a multiple of 4")
	}
	n := len(ticket) / wordSize
	if n < layout.EQueryExtras {
		return nil, xerrors.New(xerrors.KindConfiguration, "decodeTicket", "ticket shorter than query header")
	}

	row := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(ticket[i*4 : i*4+4])
		row[i] = math.Float32frombits(bits)
	}
	return layout.Query(row), nil
}
