// CPU affinity and scheduling priority for a schedule's dispatch thread.
//
// Grounded on available_cpus_linux.go's use of golang.org/x/sys/unix for
// CPU affinity (there it reads the mask back with SchedGetaffinity; here the
// mask is set before a fresh-thread dispatch runs). Parsing a comma list of
// CPU ids/ranges is the spiritual equivalent of the teacher's
// string_utils.go word splitter, specialized for this domain.

package iotcore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseAffinity turns a "0,2-3,7" style spec into a sorted list of CPU ids.
// An empty string means "no affinity" (nil, nil).
func ParseAffinity(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	cpus := make([]int, 0)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid affinity range %q: %v", part, err)
			}
			hiN, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid affinity range %q: %v", part, err)
			}
			if hiN < loN {
				return nil, fmt.Errorf("invalid affinity range %q: descending", part)
			}
			for cpu := loN; cpu <= hiN; cpu++ {
				cpus = append(cpus, cpu)
			}
		} else {
			cpu, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid affinity cpu %q: %v", part, err)
			}
			cpus = append(cpus, cpu)
		}
	}
	sort.Ints(cpus)
	return cpus, nil
}
