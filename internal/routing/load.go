package routing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oklabs/swrouter/internal/wire"
)

// Load parses the routing-table text file described in spec.md §6: one
// route per line, whitespace-separated "destination gateway mask
// interface". Blank lines and lines beginning with '#' are skipped.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("routing: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Table, error) {
	var routes []Route
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("routing: line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		dest, err := wire.ParseIPv4(fields[0])
		if err != nil {
			return nil, fmt.Errorf("routing: line %d: destination: %w", lineNo, err)
		}
		gw, err := wire.ParseIPv4(fields[1])
		if err != nil {
			return nil, fmt.Errorf("routing: line %d: gateway: %w", lineNo, err)
		}
		mask, err := wire.ParseIPv4(fields[2])
		if err != nil {
			return nil, fmt.Errorf("routing: line %d: mask: %w", lineNo, err)
		}
		routes = append(routes, Route{Dest: dest, Gateway: gw, Mask: mask, Interface: fields[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("routing: scan: %w", err)
	}
	return NewTable(routes), nil
}
