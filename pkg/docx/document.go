// Package docx 读写 Word 文档正文，把段落暴露为可原地修改的 run 序列。
package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// wordNamespace WordprocessingML 主命名空间
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Document 打开的 docx 文档
type Document struct {
	reader   *docx.ReplaceDocx
	editable *docx.Docx

	content    string
	paragraphs []*Paragraph
	runs       []*Run
}

// Open 从文件打开文档
func Open(path string) (*Document, error) {
	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开docx文件失败: %w", err)
	}
	return newDocument(reader)
}

// OpenBytes 从内存中的 docx 数据打开文档，同一份模板可以反复打开
func OpenBytes(data []byte) (*Document, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("读取docx数据失败: %w", err)
	}
	return newDocument(reader)
}

func newDocument(reader *docx.ReplaceDocx) (*Document, error) {
	editable := reader.Editable()
	doc := &Document{
		reader:   reader,
		editable: editable,
		content:  editable.GetContent(),
	}
	if err := doc.parse(); err != nil {
		reader.Close()
		return nil, fmt.Errorf("解析document.xml失败: %w", err)
	}
	return doc, nil
}

// Paragraphs 返回正文中的所有段落（按文档顺序，包括表格单元格中的段落）
func (d *Document) Paragraphs() []*Paragraph {
	return d.paragraphs
}

// Modified 是否有 run 的文本被修改
func (d *Document) Modified() bool {
	for _, r := range d.runs {
		if r.Modified() {
			return true
		}
	}
	return false
}

// Content 返回应用修改后的 document.xml 内容
func (d *Document) Content() string {
	var b strings.Builder
	last := 0
	for _, r := range d.runs {
		if !r.Modified() {
			continue
		}
		b.WriteString(d.content[last:r.node.start])
		b.WriteString(r.node.render(r.text))
		last = r.node.end
	}
	b.WriteString(d.content[last:])
	return b.String()
}

// SaveAs 保存文档到指定路径
func (d *Document) SaveAs(path string) error {
	if d.editable == nil {
		return fmt.Errorf("文档未初始化")
	}
	if d.Modified() {
		d.editable.SetContent(d.Content())
	}
	if err := d.editable.WriteToFile(path); err != nil {
		return fmt.Errorf("保存文档失败: %w", err)
	}
	return nil
}

// Close 关闭文档
func (d *Document) Close() error {
	if d.reader != nil {
		err := d.reader.Close()
		d.reader = nil
		d.editable = nil
		return err
	}
	return nil
}

// parse 扫描 document.xml，记录每个 w:t 的位置及其所属的段落和格式
func (d *Document) parse() error {
	dec := xml.NewDecoder(strings.NewReader(d.content))

	var (
		elements  []string
		paraStack []*Paragraph
		styles    []*Style
		tables    int

		inText    bool
		text      strings.Builder
		textStart int
		elemStart int
		rPrStart  int
	)

	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			parent := ""
			if len(elements) > 0 {
				parent = elements[len(elements)-1]
			}
			elements = append(elements, name)

			switch name {
			case "p":
				p := &Paragraph{inTable: tables > 0}
				paraStack = append(paraStack, p)
				d.paragraphs = append(d.paragraphs, p)
			case "tbl":
				tables++
			case "r":
				styles = append(styles, &Style{})
			case "rPr":
				if parent == "r" {
					rPrStart = start
				}
			case "t":
				if parent == "r" {
					inText = true
					text.Reset()
					elemStart = start
					textStart = int(dec.InputOffset())
				}
			}

		case xml.CharData:
			if inText {
				text.Write(t)
			}

		case xml.EndElement:
			name := localName(t.Name)
			if len(elements) > 0 {
				elements = elements[:len(elements)-1]
			}
			parent := ""
			if len(elements) > 0 {
				parent = elements[len(elements)-1]
			}

			switch name {
			case "p":
				if len(paraStack) > 0 {
					paraStack = paraStack[:len(paraStack)-1]
				}
			case "tbl":
				tables--
			case "r":
				if len(styles) > 0 {
					styles = styles[:len(styles)-1]
				}
			case "rPr":
				if parent == "r" && len(styles) > 0 {
					styles[len(styles)-1].raw = d.content[rPrStart:int(dec.InputOffset())]
				}
			case "t":
				if !inText {
					continue
				}
				inText = false
				end := int(dec.InputOffset())
				node := textNode{start: elemStart, end: end}
				if end == textStart {
					node.selfClosing = true
					node.openTag = d.content[elemStart:end]
				} else {
					node.openTag = d.content[elemStart:textStart]
				}

				run := &Run{text: text.String(), original: text.String(), node: node}
				if len(styles) > 0 {
					run.style = styles[len(styles)-1]
				}
				d.runs = append(d.runs, run)
				if len(paraStack) > 0 {
					p := paraStack[len(paraStack)-1]
					p.runs = append(p.runs, run)
				}
			}
		}
	}
	return nil
}

// localName 只识别 WordprocessingML 命名空间中的元素，
// 未声明命名空间时解码器会把前缀 w 放在 Space 中
func localName(name xml.Name) string {
	if name.Space == wordNamespace || name.Space == "w" {
		return name.Local
	}
	return ""
}
