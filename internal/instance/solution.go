package instance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cvrpsolver/internal/opt"
)

// WriteSolution writes the header "<cost> 0" followed by one "0 c1 ... ck 0"
// line per vehicle. Unused vehicles produce "0 0".
func WriteSolution(w io.Writer, sol opt.Solution) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s 0\n", strconv.FormatFloat(sol.Cost, 'f', -1, 64))
	for _, r := range sol.Routes {
		bw.WriteString(routeLine(r))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Render concatenates every route as "0 c1 ... ck 0" separated by spaces.
func Render(sol opt.Solution) string {
	parts := make([]string, len(sol.Routes))
	for i, r := range sol.Routes {
		parts[i] = routeLine(r)
	}
	return strings.Join(parts, " ")
}

func routeLine(r opt.Route) string {
	var b strings.Builder
	b.WriteString("0")
	for _, c := range r {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(c))
	}
	b.WriteString(" 0")
	return b.String()
}

// Routes converts a solution to plain index slices for JSON payloads.
func Routes(sol opt.Solution) [][]int {
	out := make([][]int, len(sol.Routes))
	for i, r := range sol.Routes {
		out[i] = append([]int{}, r...)
	}
	return out
}

// SaveFiles writes <dir>/<base>_initial.sol and <dir>/<base>.sol and returns their paths.
func SaveFiles(dir, base string, initial, best opt.Solution) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	initPath := filepath.Join(dir, base+"_initial.sol")
	bestPath := filepath.Join(dir, base+".sol")
	if err := writeFile(initPath, initial); err != nil {
		return "", "", err
	}
	if err := writeFile(bestPath, best); err != nil {
		return "", "", err
	}
	return initPath, bestPath, nil
}

func writeFile(path string, sol opt.Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSolution(f, sol); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// BaseName strips directory and extension from an instance path.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
