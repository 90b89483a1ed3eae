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

// CPU is a Poller reporting aggregate CPU utilisation from /proc/stat
// deltas. The first sample has no baseline and reports 0%.
type CPU struct {
	Path string

	warn, danger float64
	precision    int
	prefix       string

	prevTotal uint64
	prevIdle  uint64
	havePrev  bool
	last      float64
}

func NewCPU(m config.CPUModule) *CPU {
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
		prefix = "CPU"
	}
	return &CPU{
		Path:      "/proc/stat",
		warn:      float64(warn),
		danger:    float64(danger),
		precision: m.Precision,
		prefix:    prefix,
	}
}

func (c *CPU) Sample() (Reading, error) {
	total, idle, err := readCPUTimes(c.Path)
	if err != nil {
		return Reading{}, err
	}

	percent := c.last
	if c.havePrev {
		dTotal := float64(total - c.prevTotal)
		dIdle := float64(idle - c.prevIdle)
		if dTotal > 0 {
			percent = (dTotal - dIdle) / dTotal * 100
		}
	} else {
		percent = 0
		c.havePrev = true
	}
	c.prevTotal, c.prevIdle, c.last = total, idle, percent

	return Reading{
		Text:     c.prefix + " " + formatPercent(percent, c.precision),
		Severity: theme.Threshold(percent, c.warn, c.danger),
	}, nil
}

// readCPUTimes returns the total and idle (idle+iowait) jiffies from
// the aggregate cpu line.
func readCPUTimes(path string) (total, idle uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, 0, err
		}
		return 0, 0, errors.New("empty cpu stat")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) == 0 || fields[0] != "cpu" {
		return 0, 0, errors.New("no cpu prefix")
	}
	// user nice system idle iowait irq softirq steal
	if len(fields) < 9 {
		return 0, 0, errors.New("short cpu stat")
	}
	var v [8]uint64
	for i := range v {
		v[i], err = strconv.ParseUint(fields[i+1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("cpu stat field %d: %w", i, err)
		}
		total += v[i]
	}
	return total, v[3] + v[4], nil
}
