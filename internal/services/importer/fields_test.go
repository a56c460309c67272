package importer

import (
	"testing"
)

func TestParseFieldsLabelledLines(t *testing.T) {
	text := "抄送单位\n" +
		"指令编号: 202512110007\n" +
		"指令标题: 专项清理工作提示\n" +
		"下发时间: 2025-12-11 09:30:00\n" +
		"指令内容: 请各单位对辖区内相关线索开展核查。\n"

	fields := parseFields(text)
	if fields.InstructionNo != "202512110007" {
		t.Errorf("instruction no = %q", fields.InstructionNo)
	}
	if fields.Title != "专项清理工作提示" {
		t.Errorf("title = %q", fields.Title)
	}
	if fields.IssuedAt != "2025-12-11 09:30:00" {
		t.Errorf("issued at = %q", fields.IssuedAt)
	}
	if fields.Content != "请各单位对辖区内相关线索开展核查。" {
		t.Errorf("content = %q", fields.Content)
	}
}

func TestParseFieldsFullWidthColon(t *testing.T) {
	fields := parseFields("指令编号：ZL-2025-083\n指令标题：巡查通知\n")
	if fields.InstructionNo != "ZL-2025-083" {
		t.Errorf("instruction no = %q", fields.InstructionNo)
	}
	if fields.Title != "巡查通知" {
		t.Errorf("title = %q", fields.Title)
	}
}

func TestParseFieldsMultiLineContent(t *testing.T) {
	text := "指令内容: 请核查以下问题线索。\n" +
		"\n" +
		"发现问题后及时反馈处理结果至值班室。\n" +
		"ok\n" + // under the length floor, dropped
		"下发时间: 2025-12-11\n"

	fields := parseFields(text)
	want := "请核查以下问题线索。\n发现问题后及时反馈处理结果至值班室。"
	if fields.Content != want {
		t.Errorf("content = %q, want %q", fields.Content, want)
	}
	if fields.IssuedAt != "2025-12-11" {
		t.Errorf("issued at = %q, field after body not captured", fields.IssuedAt)
	}
}

func TestParseFieldsContentStopsAtTable(t *testing.T) {
	text := "指令内容: 请处置下列链接。\n" +
		"具体处置要求见附表，完成后逐项反馈。\n" +
		"序号\n" +
		"https://example.com/post/1\n" +
		"https://example.com/post/2\n"

	fields := parseFields(text)
	want := "请处置下列链接。\n具体处置要求见附表，完成后逐项反馈。"
	if fields.Content != want {
		t.Errorf("content = %q, want %q", fields.Content, want)
	}
}

func TestParseFieldsFirstNonEmptyWins(t *testing.T) {
	text := "指令编号:\n指令编号: A-1\n指令编号: B-2\n"
	fields := parseFields(text)
	if fields.InstructionNo != "A-1" {
		t.Errorf("instruction no = %q, want first non-empty", fields.InstructionNo)
	}
}

func TestParseFieldsEmpty(t *testing.T) {
	fields := parseFields("没有任何标签的普通文本。\n")
	if !fields.IsEmpty() {
		t.Errorf("expected empty fields, got %+v", fields)
	}
}

func TestIsTableLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"序号", true},
		{"链接地址", true},
		{"1、2、3", true},
		{"12.", true},
		{"https://example.com/x", true},
		{"www.example.com", true},
		{"a\tb\tc", true},
		{"col1  col2  col3  col4", true},
		{"请各单位按要求开展核查工作。", false},
		{"该账号持续发布相关内容，情节较为严重。", false}, // keyword present but line too long
		{"", false},
	}
	for _, tc := range cases {
		if got := isTableLine(tc.line); got != tc.want {
			t.Errorf("isTableLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("指令编号 ：　A-1")
	want := "指令编号 : A-1"
	if got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}
