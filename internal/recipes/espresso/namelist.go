package espresso

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/G-Research/phononflow/internal/phononflow/configuration"
)

// Namelist order expected by each program. Namelists given in the input data that are not
// listed here are written afterwards in alphabetical order. pw.x reads &CELL only for a
// variable cell relaxation.
var (
	pwNamelists     = []string{"control", "system", "electrons", "ions"}
	phNamelists     = []string{"inputph"}
	q2rNamelists    = []string{"input"}
	matdynNamelists = []string{"input"}
)

// mergeNamelists returns a deep copy of base with overrides applied on top. Keys are lower cased,
// matching Fortran's case insensitivity.
func mergeNamelists(base configuration.Namelists, overrides configuration.Namelists) configuration.Namelists {
	out := configuration.Namelists{}
	for _, src := range []configuration.Namelists{base, overrides} {
		for name, params := range src {
			name = strings.ToLower(name)
			if out[name] == nil {
				out[name] = map[string]interface{}{}
			}
			for k, v := range params {
				out[name][strings.ToLower(k)] = v
			}
		}
	}
	return out
}

// renderNamelists writes data as Fortran namelists. Every name in required is written, even when empty.
func renderNamelists(sb *strings.Builder, required []string, data configuration.Namelists) error {
	names := append([]string{}, required...)
	extra := maps.Keys(data)
	slices.Sort(extra)
	for _, name := range extra {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		fmt.Fprintf(sb, "&%s\n", strings.ToUpper(name))
		params := data[name]
		keys := maps.Keys(params)
		slices.Sort(keys)
		for _, k := range keys {
			v, err := formatValue(params[k])
			if err != nil {
				return errors.Wrapf(err, "namelist %s key %s", name, k)
			}
			fmt.Fprintf(sb, "   %s = %s\n", k, v)
		}
		sb.WriteString("/\n")
	}
	return nil
}

func formatValue(v interface{}) (string, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return ".true.", nil
		}
		return ".false.", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x)), nil
	case float64:
		return formatFloat(x), nil
	default:
		return "", errors.Errorf("unsupported namelist value %v of type %T", v, v)
	}
}

// formatFloat always includes a decimal point or exponent so Fortran reads a real.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
