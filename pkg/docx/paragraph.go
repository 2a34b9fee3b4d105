package docx

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Style run 的格式句柄（w:rPr），对替换逻辑不透明
type Style struct {
	raw string
}

// Run 段落中的一个文本片段，对应 w:r 下的一个 w:t
type Run struct {
	text     string
	original string
	style    *Style
	node     textNode
}

// Text 返回当前文本
func (r *Run) Text() string {
	return r.text
}

// Style 返回格式句柄，同一个 w:r 下的多个 w:t 共用一个句柄
func (r *Run) Style() *Style {
	return r.style
}

// Modified 文本是否被修改过
func (r *Run) Modified() bool {
	return r.text != r.original
}

// Paragraph 一个 w:p 段落，包括表格单元格和文本框中的段落
type Paragraph struct {
	runs    []*Run
	inTable bool
}

// Len 返回 run 数量
func (p *Paragraph) Len() int {
	return len(p.runs)
}

// Text 返回第 i 个 run 的文本
func (p *Paragraph) Text(i int) string {
	return p.runs[i].text
}

// SetText 修改第 i 个 run 的文本
func (p *Paragraph) SetText(i int, text string) {
	p.runs[i].text = text
}

// Runs 返回段落中的 run
func (p *Paragraph) Runs() []*Run {
	return p.runs
}

// InTable 段落是否位于表格中
func (p *Paragraph) InTable() bool {
	return p.inTable
}

// PlainText 返回所有 run 文本的拼接
func (p *Paragraph) PlainText() string {
	var b strings.Builder
	for _, r := range p.runs {
		b.WriteString(r.text)
	}
	return b.String()
}

// textNode 记录 w:t 元素在 document.xml 中的位置
type textNode struct {
	start       int
	end         int
	openTag     string
	selfClosing bool
}

// render 用新文本重新生成整个 w:t 元素，保留原有的开始标签
func (n textNode) render(text string) string {
	open := n.openTag
	if n.selfClosing {
		open = strings.TrimRight(strings.TrimSuffix(open, "/>"), " \t\r\n") + ">"
	}
	if needsPreserve(text) && !strings.Contains(open, "xml:space") {
		open = strings.TrimSuffix(open, ">") + ` xml:space="preserve">`
	}

	var b strings.Builder
	b.WriteString(open)
	b.WriteString(escapeText(text))
	b.WriteString("</")
	b.WriteString(qualifiedName(open))
	b.WriteString(">")
	return b.String()
}

// qualifiedName 从开始标签中取出带前缀的元素名
func qualifiedName(openTag string) string {
	name := strings.TrimPrefix(openTag, "<")
	if i := strings.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}
	return name
}

// needsPreserve 首尾有空白时 Word 需要 xml:space="preserve" 才会保留
func needsPreserve(text string) bool {
	if text == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	last, _ := utf8.DecodeLastRuneInString(text)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeText 转义文本节点中的XML特殊字符
func escapeText(text string) string {
	return textEscaper.Replace(text)
}
