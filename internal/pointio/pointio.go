// Package pointio implements the binary file I/O the core consumes as an
// external collaborator: the fixed dataset/query row format on read, and
// the headerless KNN result matrix on save/read.
package pointio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/metrics"
	"github.com/rangeknn/hybridindex/internal/xerrors"
)

// ReadPoints reads a dataset file: a little-endian uint32 row count
// followed by N rows of rowDim little-endian float32s.
func ReadPoints(path string, rowDim int) ([]layout.Point, error) {
	rows, err := readRows(path, rowDim, "dataset")
	if err != nil {
		return nil, err
	}
	points := make([]layout.Point, len(rows))
	for i, row := range rows {
		points[i] = layout.Point(row)
	}
	return points, nil
}

// ReadQueries reads a query file with the same binary shape as ReadPoints
// but rowDim = layout.QueryDimension(D).
func ReadQueries(path string, rowDim int) ([]layout.Query, error) {
	rows, err := readRows(path, rowDim, "queries")
	if err != nil {
		return nil, err
	}
	queries := make([]layout.Query, len(rows))
	for i, row := range rows {
		queries[i] = layout.Query(row)
	}
	return queries, nil
}

func readRows(path string, rowDim int, role string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "readRows", "open "+path)
	}
	defer f.Close()

	br := bufio.NewReader(f)

	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "readRows", "read row count")
	}

	rows := make([][]float32, n)
	buf := make([]byte, rowDim*4)
	var bytesRead int64
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, xerrors.Wrap(err, xerrors.KindIO, "readRows", fmt.Sprintf("read row %d of %d", i, n))
		}
		row := make([]float32, rowDim)
		for j := 0; j < rowDim; j++ {
			bits := binary.LittleEndian.Uint32(buf[j*4 : j*4+4])
			row[j] = math.Float32frombits(bits)
		}
		rows[i] = row
		bytesRead += int64(len(buf))
	}

	metrics.IOBytesTotal.WithLabelValues(role, "read").Add(float64(bytesRead) + 4)
	return rows, nil
}

// SaveKNN writes knns as a headerless row-major uint32 matrix. Every row
// must have the same width; callers pass K-wide rows.
func SaveKNN(path string, knns [][]uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "SaveKNN", "create "+path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	var bytesWritten int64
	for _, row := range knns {
		for _, id := range row {
			binary.LittleEndian.PutUint32(buf, id)
			if _, err := w.Write(buf); err != nil {
				return xerrors.Wrap(err, xerrors.KindIO, "SaveKNN", "write row")
			}
			bytesWritten += 4
		}
	}
	if err := w.Flush(); err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "SaveKNN", "flush")
	}

	metrics.IOBytesTotal.WithLabelValues("output", "write").Add(float64(bytesWritten))
	return nil
}

// ReadKNN reads back a headerless uint32 matrix written by SaveKNN,
// deriving the row count from the file size. Returns a configuration error
// if the file size is not a multiple of k*4.
func ReadKNN(path string, k int) ([][]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "ReadKNN", "read "+path)
	}

	rowBytes := k * 4
	if rowBytes == 0 || len(data)%rowBytes != 0 {
		return nil, xerrors.New(xerrors.KindConfiguration, "ReadKNN",
			fmt.Sprintf("file size %d is not a multiple of K*4=%d", len(data), rowBytes))
	}

	n := len(data) / rowBytes
	knns := make([][]uint32, n)
	for i := 0; i < n; i++ {
		row := make([]uint32, k)
		for j := 0; j < k; j++ {
			off := i*rowBytes + j*4
			row[j] = binary.LittleEndian.Uint32(data[off : off+4])
		}
		knns[i] = row
	}

	metrics.IOBytesTotal.WithLabelValues("output", "read").Add(float64(len(data)))
	return knns, nil
}
