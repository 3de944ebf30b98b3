// Package instance reads CVRP problem files and writes solution files.
//
// The text format starts with a header line "N V Q" (node count including
// the depot, vehicle count, capacity) followed by N lines "demand x y". The
// first node is the depot.
package instance

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cvrpsolver/internal/model"
	"cvrpsolver/internal/opt"
)

var ErrFormat = errors.New("instance: malformed input")

// ParseText reads the whitespace separated text format.
func ParseText(r io.Reader) (opt.Problem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			f := strings.Fields(sc.Text())
			if len(f) > 0 {
				return f, true
			}
		}
		return nil, false
	}

	head, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return opt.Problem{}, err
		}
		return opt.Problem{}, fmt.Errorf("%w: empty input", ErrFormat)
	}
	if len(head) < 3 {
		return opt.Problem{}, fmt.Errorf("%w: line %d: header needs 3 fields, got %d", ErrFormat, line, len(head))
	}
	var hdr [3]int
	for i := range hdr {
		v, err := strconv.Atoi(head[i])
		if err != nil {
			return opt.Problem{}, fmt.Errorf("%w: line %d: header field %d: %v", ErrFormat, line, i+1, err)
		}
		hdr[i] = v
	}
	n, vehicles, capacity := hdr[0], hdr[1], hdr[2]
	if n < 1 {
		return opt.Problem{}, fmt.Errorf("%w: line %d: node count must be >= 1, got %d", ErrFormat, line, n)
	}

	p := opt.Problem{Customers: make([]opt.Customer, n), Vehicles: vehicles, Capacity: capacity}
	for i := 0; i < n; i++ {
		f, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return opt.Problem{}, err
			}
			return opt.Problem{}, fmt.Errorf("%w: expected %d nodes, got %d", ErrFormat, n, i)
		}
		if len(f) < 3 {
			return opt.Problem{}, fmt.Errorf("%w: line %d: node needs 3 fields, got %d", ErrFormat, line, len(f))
		}
		d, err := strconv.Atoi(f[0])
		if err != nil {
			return opt.Problem{}, fmt.Errorf("%w: line %d: demand: %v", ErrFormat, line, err)
		}
		x, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return opt.Problem{}, fmt.Errorf("%w: line %d: x: %v", ErrFormat, line, err)
		}
		y, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return opt.Problem{}, fmt.Errorf("%w: line %d: y: %v", ErrFormat, line, err)
		}
		p.Customers[i] = opt.Customer{Demand: d, X: x, Y: y}
	}
	if err := sc.Err(); err != nil {
		return opt.Problem{}, err
	}
	return p, nil
}

// ParseJSON decodes a model.Instance document.
func ParseJSON(r io.Reader) (opt.Problem, error) {
	var in model.Instance
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return opt.Problem{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return ToProblem(in), nil
}

// Load picks the parser from the file extension: ".json" is JSON, anything else is text.
func Load(path string) (opt.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return opt.Problem{}, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(f)
	}
	return ParseText(f)
}

func ToProblem(in model.Instance) opt.Problem {
	p := opt.Problem{Customers: make([]opt.Customer, len(in.Customers)), Vehicles: in.Vehicles, Capacity: in.Capacity}
	for i, c := range in.Customers {
		p.Customers[i] = opt.Customer{Demand: c.Demand, X: c.X, Y: c.Y}
	}
	return p
}

func FromProblem(name string, p opt.Problem) model.Instance {
	in := model.Instance{Name: name, Vehicles: p.Vehicles, Capacity: p.Capacity, Customers: make([]model.Customer, len(p.Customers))}
	for i, c := range p.Customers {
		in.Customers[i] = model.Customer{Demand: c.Demand, X: c.X, Y: c.Y}
	}
	return in
}
