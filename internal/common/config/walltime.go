package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Walltime is a scheduler wall-clock limit, written as HH:MM:SS in configuration.
type Walltime time.Duration

func ParseWalltime(s string) (Walltime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.Errorf("invalid walltime %q: expected HH:MM:SS", s)
	}
	var fields [3]int
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, errors.Errorf("invalid walltime %q: expected HH:MM:SS", s)
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid walltime %q", s)
		}
		fields[i] = v
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if m > 59 || sec > 59 {
		return 0, errors.Errorf("invalid walltime %q: field out of range", s)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	return Walltime(d), nil
}

func (w Walltime) Duration() time.Duration {
	return time.Duration(w)
}

// String renders the walltime the way sbatch --time expects it.
func (w Walltime) String() string {
	total := int64(time.Duration(w) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
