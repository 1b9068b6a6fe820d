package cr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

// About is the content of the about document of a CR.
type About struct {
	Number      int    `json:"number" yaml:"number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Open        bool   `json:"open" yaml:"open"`
}

// Entry names a version of a package file. The deleted-files index of a CR
// lists the files the CR deletes together with the version it saw last; a
// track file lists the versions that CR copies were taken from.
type Entry struct {
	File    string `json:"file" yaml:"file"`
	Version int    `json:"version" yaml:"version"`
}

const (
	aboutSection   = "fastn.cr-about"
	deletedSection = "fastn.cr-deleted"
	trackSection   = "fastn.track"
)

// FormatAbout writes the about document of a CR.
func FormatAbout(a About) string {
	title := a.Title
	about := &parse.Section{Name: aboutSection, Caption: &title}
	if !a.Open {
		about.Headers = []*parse.Header{kv("open", "false")}
	}
	if a.Description != "" {
		about.Body = &parse.Body{Value: a.Description}
	}
	return parse.Emit([]*parse.Section{importFastn(), about})
}

// ParseAbout reads the about document of CR n. A document without an
// "open" header describes an open CR.
func ParseAbout(n int, content string) (About, error) {
	secs, err := parse.Parse(parse.Source{Name: AboutPath(n), Code: content}, parse.Config{})
	if err != nil {
		return About{}, err
	}
	for _, s := range secs {
		if s.Name != aboutSection {
			continue
		}
		a := About{Number: n, Open: true}
		if s.Caption != nil {
			a.Title = *s.Caption
		}
		if s.Body != nil {
			a.Description = s.Body.Value
		}
		if h := s.Header("open"); h != nil {
			v, _ := h.StringValue()
			open, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return About{}, fmt.Errorf("%s:%d: open must be true or false, got '%s'", AboutPath(n), h.Line, v)
			}
			a.Open = open
		}
		return a, nil
	}
	return About{}, fmt.Errorf("%w: CR %d", ErrCRAboutNotFound, n)
}

// FormatDeleted writes the deleted-files index of a CR.
func FormatDeleted(entries []Entry) string { return formatEntries(deletedSection, entries) }

// ParseDeleted reads the deleted-files index of CR n.
func ParseDeleted(n int, content string) ([]Entry, error) {
	return parseEntries(DeletedPath(n), deletedSection, content)
}

// FormatTrack writes a track file.
func FormatTrack(entries []Entry) string { return formatEntries(trackSection, entries) }

// ParseTrack reads a track file.
func ParseTrack(path, content string) ([]Entry, error) {
	return parseEntries(path, trackSection, content)
}

// Find returns the entry for a file.
func Find(entries []Entry, file string) (Entry, bool) {
	for _, e := range entries {
		if e.File == file {
			return e, true
		}
	}
	return Entry{}, false
}

// Put returns entries with the entry for e.File replaced by e, or e added.
func Put(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	for _, old := range entries {
		if old.File != e.File {
			out = append(out, old)
		}
	}
	return append(out, e)
}

// Remove returns entries without the entry for file.
func Remove(entries []Entry, file string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.File != file {
			out = append(out, e)
		}
	}
	return out
}

func formatEntries(section string, entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })
	secs := []*parse.Section{importFastn()}
	for _, e := range sorted {
		file := e.File
		secs = append(secs, &parse.Section{Name: section, Caption: &file,
			Headers: []*parse.Header{kv("version", strconv.Itoa(e.Version))}})
	}
	return parse.Emit(secs)
}

func importFastn() *parse.Section {
	fastn := "fastn"
	return &parse.Section{Name: "import", Caption: &fastn}
}

func kv(key, value string) *parse.Header {
	return &parse.Header{Type: parse.KV, Key: key, Value: &value}
}

func parseEntries(name, section, content string) ([]Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	secs, err := parse.Parse(parse.Source{Name: name, Code: content}, parse.Config{})
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, s := range secs {
		if s.Name != section {
			continue
		}
		if s.Caption == nil {
			return nil, fmt.Errorf("%s:%d: %s needs a file name", name, s.Line, section)
		}
		h := s.Header("version")
		if h == nil {
			return nil, fmt.Errorf("%s:%d: %s needs a version", name, s.Line, section)
		}
		v, _ := h.StringValue()
		version, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad version '%s'", name, h.Line, v)
		}
		entries = append(entries, Entry{File: Clean(*s.Caption), Version: version})
	}
	return entries, nil
}
