package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

var timestampPattern = regexp.MustCompile(`(\d{8})_(\d{6})`)

// extractTimestamp reads the creation time embedded in an artifact name,
// e.g. shop_20261019_000000.sql.gz.
func extractTimestamp(filename string) (time.Time, error) {
	matches := timestampPattern.FindAllStringSubmatch(filename, -1)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid filename format: no timestamp found")
	}

	last := matches[len(matches)-1]
	return time.ParseInLocation(domain.TimestampLayout, last[1]+"_"+last[2], time.Local)
}

// beyondNewest returns the names that fall outside the newest keep entries.
// Names without a timestamp are never returned.
func beyondNewest(files []string, keep int) []string {
	type stamped struct {
		name string
		at   time.Time
	}

	var dated []stamped
	for _, f := range files {
		at, err := extractTimestamp(f)
		if err != nil {
			continue
		}
		dated = append(dated, stamped{f, at})
	}
	if len(dated) <= keep {
		return nil
	}

	sort.Slice(dated, func(i, j int) bool {
		if !dated[i].at.Equal(dated[j].at) {
			return dated[i].at.After(dated[j].at)
		}
		return dated[i].name > dated[j].name
	})

	out := make([]string, 0, len(dated)-keep)
	for _, s := range dated[keep:] {
		out = append(out, s.name)
	}
	return out
}
