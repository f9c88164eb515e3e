package extraction

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	blankLines    = regexp.MustCompile(`\n\s*\n`)
)

// ParseFunc 将原始字节解析为未规范化的文本
type ParseFunc func(data []byte) (string, error)

// TextExtractor 上传文档 -> 规范化纯文本
type TextExtractor interface {
	Extract(data []byte, filename string) (string, error)
}

type pdfExtractor struct {
	parse ParseFunc
}

// NewPDFExtractor 基于 ledongthuc/pdf 的实现
func NewPDFExtractor() TextExtractor {
	return &pdfExtractor{parse: parsePDF}
}

// NewExtractorWithParser 替换底层解析器
func NewExtractorWithParser(parse ParseFunc) TextExtractor {
	return &pdfExtractor{parse: parse}
}

func (e *pdfExtractor) Extract(data []byte, filename string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error("pdf parser panicked", zap.String("filename", filename), zap.Any("panic", r))
			text, err = "", xerr.NewExtraction("unable to read text from the uploaded PDF")
		}
	}()

	raw, perr := e.parse(data)
	if perr != nil {
		zlog.Warn("pdf parse failed", zap.String("filename", filename), zap.Error(perr))
		return "", xerr.NewExtraction("unable to read text from the uploaded PDF")
	}

	text = Normalize(raw)
	if text == "" {
		zlog.Warn("pdf has no extractable text", zap.String("filename", filename))
		return "", xerr.NewExtraction("the uploaded PDF contains no extractable text")
	}
	return text, nil
}

// Normalize 合并空白、折叠空行并去除首尾空白
func Normalize(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func parsePDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
