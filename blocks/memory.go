package blocks

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"taskbar/config"
	"taskbar/theme"
)

// Memory is a Poller reporting memory use from /proc/meminfo.
type Memory struct {
	Path string

	warn, danger float64
	precision    int
	prefix       string
	format       string // percent|available|used
}

func NewMemory(m config.MemoryModule) *Memory {
	warn := m.WarnPercent
	if warn <= 0 {
		warn = 70
	}
	danger := m.DangerPercent
	if danger <= warn {
		danger = warn + 10
	}
	if danger > 100 {
		danger = 100
	}
	prefix := m.Prefix
	if prefix == "" {
		prefix = "MEM"
	}
	return &Memory{
		Path:      "/proc/meminfo",
		warn:      float64(warn),
		danger:    float64(danger),
		precision: m.Precision,
		prefix:    prefix,
		format:    m.Format,
	}
}

func (m *Memory) Sample() (Reading, error) {
	info, err := readMemInfo(m.Path)
	if err != nil {
		return Reading{}, err
	}

	var text string
	switch m.format {
	case "available":
		text = fmt.Sprintf("%s %s free", m.prefix, humanBytes(info.available))
	case "used":
		text = fmt.Sprintf("%s %s used", m.prefix, humanBytes(info.used))
	default:
		text = m.prefix + " " + formatPercent(info.percent, m.precision)
	}
	return Reading{
		Text:     text,
		Severity: theme.Threshold(info.percent, m.warn, m.danger),
	}, nil
}

type memInfo struct {
	total, available, used uint64 // bytes
	percent                float64
}

func readMemInfo(path string) (memInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return memInfo{}, err
	}
	defer f.Close()

	kb := map[string]uint64{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// Key:  Value kB
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		kb[key] = v
	}
	if err := sc.Err(); err != nil {
		return memInfo{}, err
	}

	total := kb["MemTotal"]
	if total == 0 {
		return memInfo{}, errors.New("no MemTotal")
	}
	avail, ok := kb["MemAvailable"]
	if !ok {
		// Kernels before 3.14 lack MemAvailable.
		avail = kb["MemFree"] + kb["Buffers"] + kb["Cached"]
	}
	if avail > total {
		avail = total
	}
	info := memInfo{
		total:     total * 1024,
		available: avail * 1024,
		used:      (total - avail) * 1024,
	}
	info.percent = float64(info.used) / float64(info.total) * 100
	return info, nil
}

// humanBytes converts bytes to a short human string (KiB, MiB, GiB) with up to one decimal.
func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	value := float64(b) / float64(div)
	if value < 10 {
		return fmt.Sprintf("%.1f%ciB", value, "KMGTPE"[exp])
	}
	return fmt.Sprintf("%.0f%ciB", value, "KMGTPE"[exp])
}
