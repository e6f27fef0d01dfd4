// Package report implements the Denial Report Aggregator: the
// end-of-run pass that turns the Robots Cache's in-memory denial list
// into JSONL, JSON-summary and CSV artifacts under the run's report
// directory.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/kasumi-gikai/minutes-crawler/internal/robots"
	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
	"github.com/kasumi-gikai/minutes-crawler/pkg/fileutil"
)

// topN bounds how many groupings the summary JSON keeps per dimension.
// spec.md names "top-N groupings" without pinning N; 10 is generous
// enough for the handful of municipalities/hosts a single run touches.
const topN = 10

// denialRecord is the JSONL and CSV row shape: one line per distinct
// (host, path_prefix, url) denial.
type denialRecord struct {
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Host       string `json:"host"`
	PathPrefix string `json:"path_prefix"`
	URL        string `json:"url"`
}

type countGroup struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type summary struct {
	ByCity       []countGroup `json:"by_city"`
	ByHost       []countGroup `json:"by_host"`
	ByPathPrefix []countGroup `json:"by_path_prefix"`
}

// Run builds every denial report artifact under dir from denials, the
// Robots Cache's final snapshot. It writes nothing if denials is empty.
func Run(dir string, denials []robots.Denial) failure.ClassifiedError {
	if len(denials) == 0 {
		return nil
	}

	if err := fileutil.EnsureDir(dir); err != nil {
		return &ReportError{Artifact: dir, Message: err.Error()}
	}

	records := make([]denialRecord, len(denials))
	for i, d := range denials {
		records[i] = denialRecord{
			Prefecture: d.Prefecture,
			City:       d.City,
			Host:       d.Host,
			PathPrefix: d.PathPrefix,
			URL:        d.URL,
		}
	}

	if err := writeJSONL(dir+"/robots_disallow_urls.jsonl", records); err != nil {
		return err
	}

	byCity := countBy(records, func(r denialRecord) string { return r.City })
	byHost := countBy(records, func(r denialRecord) string { return r.Host })
	byPathPrefix := countBy(records, func(r denialRecord) string { return r.PathPrefix })

	s := summary{
		ByCity:       topGroups(byCity),
		ByHost:       topGroups(byHost),
		ByPathPrefix: topGroups(byPathPrefix),
	}
	if err := writeJSON(dir+"/robots_disallow_summary.json", s); err != nil {
		return err
	}

	if err := writeCSV(dir+"/robots_disallow_by_city.csv", allGroups(byCity)); err != nil {
		return err
	}
	if err := writeCSV(dir+"/robots_disallow_by_domain.csv", allGroups(byHost)); err != nil {
		return err
	}
	if err := writeCSV(dir+"/robots_disallow_by_path_prefix.csv", allGroups(byPathPrefix)); err != nil {
		return err
	}

	return nil
}

func countBy(records []denialRecord, key func(denialRecord) string) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[key(r)]++
	}
	return counts
}

// allGroups sorts a count map by count descending, then key ascending
// for a stable tie-break, per spec.md's "count desc" CSV ordering.
func allGroups(counts map[string]int) []countGroup {
	groups := make([]countGroup, 0, len(counts))
	for k, v := range counts {
		groups = append(groups, countGroup{Key: k, Count: v})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func topGroups(counts map[string]int) []countGroup {
	groups := allGroups(counts)
	if len(groups) > topN {
		groups = groups[:topN]
	}
	return groups
}

func writeJSONL(path string, records []denialRecord) failure.ClassifiedError {
	buf := make([]byte, 0, len(records)*64)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return &ReportError{Artifact: path, Message: err.Error()}
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if ferr := fileutil.WriteFileAtomic(path, buf, 0o644); ferr != nil {
		return &ReportError{Artifact: path, Message: ferr.Error()}
	}
	return nil
}

func writeJSON(path string, v any) failure.ClassifiedError {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &ReportError{Artifact: path, Message: err.Error()}
	}
	data = append(data, '\n')
	if ferr := fileutil.WriteFileAtomic(path, data, 0o644); ferr != nil {
		return &ReportError{Artifact: path, Message: ferr.Error()}
	}
	return nil
}

func writeCSV(path string, groups []countGroup) failure.ClassifiedError {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "count"}); err != nil {
		return &ReportError{Artifact: path, Message: err.Error()}
	}
	for _, g := range groups {
		if err := w.Write([]string{g.Key, strconv.Itoa(g.Count)}); err != nil {
			return &ReportError{Artifact: path, Message: err.Error()}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &ReportError{Artifact: path, Message: err.Error()}
	}
	if ferr := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); ferr != nil {
		return &ReportError{Artifact: path, Message: ferr.Error()}
	}
	return nil
}
