package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointpipe/internal/planefit"
	"github.com/banshee-data/pointpipe/internal/pointset"
)

// readXYZ reads X Y Z rows. Blank lines and '#' comments are skipped, as
// is a non-numeric header on the first row.
func (a *app) readXYZ(path string) ([]pointset.Point, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseXYZ(f)
}

func parseXYZ(r io.Reader) ([]pointset.Point, error) {
	var pts []pointset.Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", line, len(fields))
		}
		var xyz [3]float64
		var perr error
		for i := 0; i < 3 && perr == nil; i++ {
			xyz[i], perr = strconv.ParseFloat(fields[i], 64)
		}
		if perr != nil {
			if len(pts) == 0 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, perr)
		}
		pts = append(pts, pointset.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return pts, sc.Err()
}

func (a *app) writeXYZ(cmd *cobra.Command, path string, tbl *pointset.Table) error {
	if path == "-" {
		return formatXYZ(cmd.OutOrStdout(), tbl)
	}
	var buf bytes.Buffer
	if err := formatXYZ(&buf, tbl); err != nil {
		return err
	}
	return a.fs.WriteFile(path, buf.Bytes(), 0o644)
}

func formatXYZ(w io.Writer, tbl *pointset.Table) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "X,Y,Z,%s\n", planefit.Dimension)
	for i := 0; i < tbl.Len(); i++ {
		x, y, z := tbl.XYZ(i)
		v, err := tbl.Field(planefit.Dimension, i)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "%s,%s,%s,%s\n", ff(x), ff(y), ff(z), ff(v))
	}
	return bw.Flush()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
