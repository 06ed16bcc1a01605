package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

// Entry is one parsed line of the station log.
type Entry struct {
	Time      string
	Level     logrus.Level
	Message   string
	Component string
	// Fields holds the remaining key=value pairs in file order.
	Fields [][2]string
	Raw    string
}

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring deque.Deque[string]
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring.PushBack(scanner.Text())
		if ring.Len() > maxLines {
			ring.PopFront()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, 0, ring.Len())
	for i := 0; i < ring.Len(); i++ {
		lines = append(lines, ring.At(i))
	}
	return lines, nil
}

// Tail reads the last maxLines of the log and keeps entries at minLevel or more
// severe.
func Tail(path string, maxLines int, minLevel logrus.Level) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Level <= minLevel {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Parse reads a logrus text line (key=value pairs, values optionally quoted).
// Lines that are not key=value keep their text as the message at info level.
func Parse(line string) Entry {
	e := Entry{Level: logrus.InfoLevel, Raw: line}
	pairs, ok := splitPairs(line)
	if !ok {
		e.Message = strings.TrimSpace(line)
		return e
	}
	for _, kv := range pairs {
		switch kv[0] {
		case "time":
			e.Time = kv[1]
		case "level":
			if lvl, err := logrus.ParseLevel(strings.TrimSpace(kv[1])); err == nil {
				e.Level = lvl
			}
		case "msg":
			e.Message = kv[1]
		case "component":
			e.Component = kv[1]
		default:
			e.Fields = append(e.Fields, kv)
		}
	}
	return e
}

func splitPairs(line string) ([][2]string, bool) {
	var pairs [][2]string
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \"") {
			return nil, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return nil, false
			}
			unquoted, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, false
			}
			value, rest = unquoted, rest[end+1:]
		} else {
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			value, rest = rest[:end], rest[end:]
		}
		pairs = append(pairs, [2]string{key, value})
		rest = strings.TrimLeft(rest, " ")
	}
	return pairs, len(pairs) > 0
}

// closingQuote returns the index of the quote closing s[0], skipping escapes.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
