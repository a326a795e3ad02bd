package chunker

import (
	"fmt"
	"strings"
)

// cue is one SubRip subtitle block.
type cue struct {
	start string
	end   string
	text  string
}

// parseSRT reads SubRip format: blocks separated by blank lines, each block
// holding a sequence number, a "start --> end" timing line, then text lines.
// Blocks without a timing line are skipped rather than failing the file;
// exported subtitles are messy in practice.
func parseSRT(content string) ([]cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")

	var cues []cue
	for _, block := range blocks {
		lines := nonEmptyLines(block)
		if len(lines) < 2 {
			continue
		}
		// The sequence number line is optional in the wild.
		timingIdx := -1
		for i, line := range lines[:min(2, len(lines))] {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx == -1 || timingIdx+1 >= len(lines) {
			continue
		}
		start, end, err := parseTiming(lines[timingIdx])
		if err != nil {
			continue
		}
		cues = append(cues, cue{
			start: start,
			end:   end,
			text:  strings.Join(lines[timingIdx+1:], "\n"),
		})
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("no subtitle cues found")
	}
	return cues, nil
}

func parseTiming(line string) (start, end string, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed timing line %q", line)
	}
	start = strings.TrimSpace(parts[0])
	// Positioning hints may trail the end timestamp.
	endFields := strings.Fields(parts[1])
	if start == "" || len(endFields) == 0 {
		return "", "", fmt.Errorf("malformed timing line %q", line)
	}
	end = endFields[0]
	return start, end, nil
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
