package importer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ternarybob/colligo/internal/models"
)

// fieldLine matches one labelled directive line. Both the ASCII and the
// full-width colon are accepted; values keep their inner whitespace.
var fieldLine = regexp.MustCompile(`^\s*(指令编号|指令标题|下发时间|指令内容)\s*[:：]\s*(.*?)\s*$`)

// tableHeaders are cell labels that mark the start of tabular content in a
// directive document. The directive body ends where a table begins.
var tableHeaders = []string{
	"标题", "链接", "网站", "属地", "处置方式", "序号", "时间", "内容", "类型",
	"编号", "名称", "地址", "来源", "状态", "备注", "操作", "详情",
	"链接地址", "网站名称", "处理方式", "处理结果", "处理时间",
}

// parseFields scans the paragraph lines of a directive document for the
// four labelled fields. The first non-empty occurrence wins; the directive
// body additionally collects the unlabelled lines that follow it, up to the
// next field or the first table row.
func parseFields(text string) models.DocFields {
	found := make(map[string][]string)
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], strings.TrimSpace(m[2])

		if key == "指令内容" {
			var body []string
			j := i + 1
			for ; j < len(lines); j++ {
				next := strings.TrimSpace(lines[j])
				if fieldLine.MatchString(next) {
					break
				}
				if next == "" {
					// Blank paragraphs separate body text, keep going
					continue
				}
				if isTableLine(next) {
					break
				}
				if next == "序号" || next == "指令编号" || next == "指令标题" || next == "下发时间" {
					continue
				}
				// Stray short fragments are layout noise, not body text
				if len(next) > 3 {
					body = append(body, next)
				}
			}
			if len(body) > 0 {
				value = normalizeContent(value + "\n" + strings.Join(body, "\n"))
			}
			// Resume at the line that ended the body so a following
			// field is still captured
			i = j - 1
		} else {
			value = normalizeText(value)
		}

		found[key] = append(found[key], value)
	}

	return models.DocFields{
		InstructionNo: firstNonEmpty(found["指令编号"]),
		Title:         firstNonEmpty(found["指令标题"]),
		IssuedAt:      firstNonEmpty(found["下发时间"]),
		Content:       firstContent(found["指令内容"]),
	}
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

// firstContent picks the directive body, skipping values that are nothing
// but a stray table header.
func firstContent(values []string) string {
	for _, v := range values {
		t := strings.TrimSpace(v)
		if t != "" && t != "序号" {
			return t
		}
	}
	return ""
}

// isTableLine reports whether a paragraph line belongs to tabular content
// rather than the directive body: a short cell label, pure numbering, a
// bare URL, or heavy column separation.
func isTableLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	for _, header := range tableHeaders {
		if strings.Contains(trimmed, header) && len(trimmed) <= 20 {
			return true
		}
	}

	numbering := true
	for _, r := range trimmed {
		if !unicode.IsDigit(r) && r != '.' && r != '、' {
			numbering = false
			break
		}
	}
	if numbering {
		return true
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") ||
		strings.HasPrefix(trimmed, "www.") {
		return true
	}

	return strings.Count(trimmed, "\t") >= 2 || strings.Count(trimmed, "  ") >= 3
}

// normalizeText folds the whitespace variants common in pasted documents
// and the full-width colon into their ASCII forms.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "　", " ")
	return strings.ReplaceAll(s, "：", ":")
}

// normalizeContent normalizes the multi-line directive body while keeping
// its line structure: per-line trailing whitespace and special spaces are
// folded, outer blank lines dropped.
func normalizeContent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = normalizeText(strings.TrimRightFunc(line, unicode.IsSpace))
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n\r")
}
