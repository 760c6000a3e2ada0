package theme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"future-arp/debug"
)

type RGB [3]uint8

// Palette is an ordered gradient of colors, looked up by a 0-1 position
type Palette struct {
	Name   string
	Colors []RGB
}

// Default is the built-in gradient, dark violet through to amber
func Default() *Palette {
	return &Palette{
		Name: "ember",
		Colors: []RGB{
			{0x1a, 0x10, 0x2b},
			{0x2e, 0x1a, 0x47},
			{0x5b, 0x2a, 0x6e},
			{0x8f, 0x3b, 0x76},
			{0xc2, 0x4d, 0x6b},
			{0xe8, 0x6a, 0x50},
			{0xf5, 0x9e, 0x3c},
			{0xfa, 0xd0, 0x5a},
		},
	}
}

// LoadGPL reads a GIMP palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// LoadOrDefault loads path when it exists and falls back to Default
func LoadOrDefault(path string) *Palette {
	if path == "" {
		return Default()
	}
	p, err := LoadGPL(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			debug.Log("theme", "using default palette: %v", err)
		}
		return Default()
	}
	return p
}

// ParseGPL reads GIMP palette text: a header, then one "R G B [name]" per line
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		if c, ok := parseRGB(strings.Fields(line)); ok {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found")
	}
	return p, nil
}

func parseRGB(fields []string) (RGB, bool) {
	if len(fields) < 3 {
		return RGB{}, false
	}
	var c RGB
	for i := range c {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v > 255 {
			return RGB{}, false
		}
		c[i] = uint8(v)
	}
	return c, true
}

// Lookup returns the interpolated color at norm (0-1)
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	if norm <= 0 || last == 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[last]
	}

	pos := norm * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	c0, c1 := p.Colors[i], p.Colors[i+1]

	var out RGB
	for k := range out {
		out[k] = uint8(float64(c0[k])*(1-frac) + float64(c1[k])*frac)
	}
	return out
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
