package domain

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// IPCount pairs a source address with its packet count. It is both a raw
// PacketCounts entry and a ranked top-source row.
type IPCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}

// PacketCounts holds per-IP packet counts in the order the detection
// service listed them. Keys are unique. The order only matters as the
// tie-break when ranking sources.
type PacketCounts []IPCount

// NewPacketCounts builds counts from pairs, keeping the first position of a
// repeated IP and the last value written to it.
func NewPacketCounts(pairs ...IPCount) PacketCounts {
	out := make(PacketCounts, 0, len(pairs))
	index := make(map[string]int, len(pairs))
	for _, p := range pairs {
		if i, dup := index[p.IP]; dup {
			out[i].Count = p.Count
			continue
		}
		index[p.IP] = len(out)
		out = append(out, p)
	}
	return out
}

func (c PacketCounts) Get(ip string) (int64, bool) {
	for _, e := range c {
		if e.IP == ip {
			return e.Count, true
		}
	}
	return 0, false
}

func (c PacketCounts) Clone() PacketCounts {
	if c == nil {
		return nil
	}
	out := make(PacketCounts, len(c))
	copy(out, c)
	return out
}

// UnmarshalJSON decodes a JSON object of ip -> count, preserving key order.
// Negative or fractional counts are rejected.
func (c *PacketCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("packet counts: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("packet counts: expected object, got %v", tok)
	}

	var pairs []IPCount
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("packet counts: %w", err)
		}
		ip, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("packet counts: unexpected key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("packet counts: value for %s: %w", ip, err)
		}
		n, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("packet counts: value for %s is not a number: %v", ip, valTok)
		}
		count, err := n.Int64()
		if err != nil {
			return fmt.Errorf("packet counts: value for %s is not an integer: %s", ip, n)
		}
		if count < 0 {
			return fmt.Errorf("packet counts: negative count %d for %s", count, ip)
		}
		pairs = append(pairs, IPCount{IP: ip, Count: count})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("packet counts: %w", err)
	}

	*c = NewPacketCounts(pairs...)
	return nil
}

// MarshalJSON encodes the counts back into an object in stored order.
func (c PacketCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.IP)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", e.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BlockedIPs is the set of addresses the detection service currently blocks.
// Service order is kept for display and duplicates are dropped.
type BlockedIPs []string

func NewBlockedIPs(ips ...string) BlockedIPs {
	out := make(BlockedIPs, 0, len(ips))
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

func (b BlockedIPs) Contains(ip string) bool {
	for _, v := range b {
		if v == ip {
			return true
		}
	}
	return false
}

func (b BlockedIPs) Clone() BlockedIPs {
	if b == nil {
		return nil
	}
	out := make(BlockedIPs, len(b))
	copy(out, b)
	return out
}

// Ack is the acknowledgement returned by a service command.
type Ack struct {
	Message string `json:"message"`
}
