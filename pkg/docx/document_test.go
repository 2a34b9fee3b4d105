package docx

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/csv_word_merge/internal/replacer"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Dear _na</w:t></w:r><w:r><w:rPr><w:i/></w:rPr><w:t>me_,</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>_com</w:t></w:r><w:r><w:t>pany_</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:t>No placeholder here</w:t></w:r></w:p>
</w:body>
</w:document>`

// createTestDocx 创建一个包含指定 document.xml 内容的测试docx文件
func createTestDocx(t *testing.T, documentXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "template.docx")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}
	defer file.Close()

	w := zip.NewWriter(file)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
	<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
	<Default Extension="xml" ContentType="application/xml"/>
	<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
	<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`,
		"word/document.xml": documentXML,
	}

	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("创建压缩文件 %s 失败: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("写入压缩文件 %s 失败: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("关闭压缩文件失败: %v", err)
	}
	return path
}

// readDocumentXML 读取docx文件中的document.xml内容
func readDocumentXML(t *testing.T, path string) string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatal("未找到document.xml文件")
	return ""
}

func TestOpen_Paragraphs(t *testing.T) {
	doc, err := Open(createTestDocx(t, sampleDocumentXML))
	require.NoError(t, err)
	defer doc.Close()

	paragraphs := doc.Paragraphs()
	require.Len(t, paragraphs, 3)

	assert.Equal(t, "Dear _name_,", paragraphs[0].PlainText())
	assert.Equal(t, 2, paragraphs[0].Len())
	assert.False(t, paragraphs[0].InTable())

	assert.Equal(t, "_company_", paragraphs[1].PlainText())
	assert.True(t, paragraphs[1].InTable())

	assert.Equal(t, "No placeholder here", paragraphs[2].PlainText())
	assert.False(t, doc.Modified())
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := Open(path)
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

func TestDocument_ContentUnchangedWithoutEdits(t *testing.T) {
	doc, err := Open(createTestDocx(t, sampleDocumentXML))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, sampleDocumentXML, doc.Content())
	assert.False(t, doc.Modified())

	// 替换为相同文本不算修改，保存后 document.xml 与模板一致
	paragraphs := doc.Paragraphs()
	assert.Equal(t, 1, replacer.Replace(paragraphs[2], "here", "here"))
	assert.False(t, doc.Modified())

	output := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, doc.SaveAs(output))
	assert.Equal(t, sampleDocumentXML, readDocumentXML(t, output))
}

func TestDocument_ReplaceSplitTokenAndSave(t *testing.T) {
	doc, err := Open(createTestDocx(t, sampleDocumentXML))
	require.NoError(t, err)
	defer doc.Close()

	paragraphs := doc.Paragraphs()
	boldStyle := paragraphs[0].Runs()[0].Style()
	italicStyle := paragraphs[0].Runs()[1].Style()

	assert.Equal(t, 1, replacer.Replace(paragraphs[0], "_name_", "Bob"))
	assert.Equal(t, 1, replacer.Replace(paragraphs[1], "_company_", "A&B"))
	assert.Equal(t, 0, replacer.Replace(paragraphs[2], "_name_", "Bob"))
	assert.True(t, doc.Modified())

	assert.Same(t, boldStyle, paragraphs[0].Runs()[0].Style())
	assert.Same(t, italicStyle, paragraphs[0].Runs()[1].Style())

	content := doc.Content()
	assert.Contains(t, content, `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Dear Bob</w:t></w:r>`)
	assert.Contains(t, content, `<w:r><w:rPr><w:i/></w:rPr><w:t>,</w:t></w:r>`)
	assert.Contains(t, content, `<w:r><w:t>A&amp;B</w:t></w:r><w:r><w:t></w:t></w:r>`)
	assert.Contains(t, content, `<w:r><w:t>No placeholder here</w:t></w:r>`)

	output := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, doc.SaveAs(output))
	assert.Equal(t, content, readDocumentXML(t, output))

	saved, err := Open(output)
	require.NoError(t, err)
	defer saved.Close()
	assert.Equal(t, "Dear Bob,", saved.Paragraphs()[0].PlainText())
	assert.Equal(t, "A&B", saved.Paragraphs()[1].PlainText())
}

func TestDocument_SelfClosingTextAndPreserve(t *testing.T) {
	xmlContent := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t/></w:r><w:r><w:t>x</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	doc, err := Open(createTestDocx(t, xmlContent))
	require.NoError(t, err)
	defer doc.Close()

	p := doc.Paragraphs()[0]
	require.Equal(t, 2, p.Len())
	assert.Equal(t, "", p.Text(0))

	p.SetText(0, " hi")
	p.SetText(1, "x ")

	content := doc.Content()
	assert.Contains(t, content, `<w:r><w:t xml:space="preserve"> hi</w:t></w:r>`)
	assert.Contains(t, content, `<w:r><w:t xml:space="preserve">x </w:t></w:r>`)
}

func TestDocument_IgnoresNonWordText(t *testing.T) {
	xmlContent := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math"><w:body>` +
		`<w:p><m:oMath><m:r><m:t>_x_</m:t></m:r></m:oMath><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	doc, err := Open(createTestDocx(t, xmlContent))
	require.NoError(t, err)
	defer doc.Close()

	p := doc.Paragraphs()[0]
	require.Equal(t, 2, p.Len())
	assert.Equal(t, "ab", p.PlainText())
	// 同一个 w:r 下的 w:t 共用格式句柄
	assert.Same(t, p.Runs()[0].Style(), p.Runs()[1].Style())
}

func TestOpenBytes(t *testing.T) {
	data, err := os.ReadFile(createTestDocx(t, sampleDocumentXML))
	require.NoError(t, err)

	first, err := OpenBytes(data)
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenBytes(data)
	require.NoError(t, err)
	defer second.Close()

	replacer.Replace(first.Paragraphs()[0], "_name_", "Eve")

	assert.Equal(t, "Dear Eve,", first.Paragraphs()[0].PlainText())
	assert.Equal(t, "Dear _name_,", second.Paragraphs()[0].PlainText())
	assert.False(t, second.Modified())
}
