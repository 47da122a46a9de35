// Package pofile reads and writes gettext PO files block by block while
// keeping every line it does not change byte-for-byte identical, including
// line endings.
//
// A block is a run of non-blank lines (one PO entry, a header, a comment
// run, ...) or a single blank line. Blocks holding exactly one msgid and one
// msgstr are records; everything else passes through untouched.
package pofile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind classifies a block.
type Kind int

const (
	// Passthrough blocks are copied verbatim: blank lines, the header entry,
	// obsolete and plural entries, comment runs and unrelated directives.
	Passthrough Kind = iota
	// RecordBlock holds a translatable entry.
	RecordBlock
	// Malformed blocks could not be parsed. They are copied verbatim and
	// carry the parse error.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case RecordBlock:
		return "record"
	case Malformed:
		return "malformed"
	default:
		return "passthrough"
	}
}

// Line is a raw input line split from its terminator.
type Line struct {
	Text string
	// EOL is "\n", "\r\n" or "" for a final line without newline.
	EOL string
}

// Block is one unit of the file.
type Block struct {
	Kind Kind
	// StartLine is the 1-based line number of the first line.
	StartLine int
	Lines     []Line
	// Record is set for RecordBlock.
	Record *Record
	// Err is set for Malformed.
	Err error
}

// Record is a translatable entry. Only MsgStr may be changed, through SetMsgStr.
type Record struct {
	// Line is the line number of the msgid keyword.
	Line    int
	MsgCtxt string
	MsgID   string
	MsgStr  string
	// Comment, when set on a changed record, is written as a translator
	// comment in front of the entry.
	Comment string

	original string
	changed  bool
	// strFirst and strLast delimit the msgstr field within the block's lines.
	strFirst, strLast int
}

// Identifier returns "msgctxt|msgid", or just msgid when there is no context.
func (r *Record) Identifier() string {
	if r.MsgCtxt != "" {
		return r.MsgCtxt + "|" + r.MsgID
	}
	return r.MsgID
}

// Value returns the text to translate: the current msgstr, or the msgid
// while msgstr is still empty.
func (r *Record) Value() string {
	if r.MsgStr != "" {
		return r.MsgStr
	}
	return r.MsgID
}

// SetMsgStr replaces the translation.
func (r *Record) SetMsgStr(s string) {
	if !r.changed {
		r.original = r.MsgStr
	}
	r.MsgStr = s
	r.changed = r.MsgStr != r.original
}

// Changed reports whether msgstr differs from the parsed value.
func (r *Record) Changed() bool {
	return r.changed
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Reader splits a PO stream into blocks.
type Reader struct {
	// OnlyEmpty turns entries whose msgstr is already filled into passthrough blocks.
	OnlyEmpty bool

	br      *bufio.Reader
	lineNum int
	pending *Line
	err     error
	started bool
}

const bom = "\ufeff"

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

func (r *Reader) readLine() (Line, error) {
	if r.pending != nil {
		l := *r.pending
		r.pending = nil
		return l, nil
	}
	if r.err != nil {
		return Line{}, r.err
	}
	s, err := r.br.ReadString('\n')
	if err != nil {
		r.err = err
		if s == "" {
			return Line{}, err
		}
	}
	r.lineNum++
	switch {
	case strings.HasSuffix(s, "\r\n"):
		return Line{Text: s[:len(s)-2], EOL: "\r\n"}, nil
	case strings.HasSuffix(s, "\n"):
		return Line{Text: s[:len(s)-1], EOL: "\n"}, nil
	}
	return Line{Text: s}, nil
}

func (r *Reader) unread(l Line) {
	r.pending = &l
}

// Next returns the next block, or io.EOF when the input is exhausted.
func (r *Reader) Next() (*Block, error) {
	if !r.started {
		r.started = true
		// A leading byte order mark becomes its own passthrough block.
		if head, err := r.br.Peek(len(bom)); err == nil && string(head) == bom {
			_, _ = r.br.Discard(len(bom))
			return &Block{Kind: Passthrough, StartLine: 1, Lines: []Line{{Text: bom}}}, nil
		}
	}

	first, err := r.readLine()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading PO file: %w", err)
	}
	// A pushed-back line is always the last one read, so lineNum is its number.
	b := &Block{StartLine: r.lineNum, Lines: []Line{first}}
	if isBlank(first.Text) {
		return b, nil
	}

	seenMsgStr := isMsgStr(first.Text)
	prevObsolete := isObsolete(first.Text)
	for {
		l, err := r.readLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("reading PO file: %w", err)
		}
		// An obsolete run ends where live lines start.
		if isBlank(l.Text) || (seenMsgStr && startsEntry(l.Text)) || (prevObsolete && !isObsolete(l.Text)) {
			r.unread(l)
			break
		}
		if isMsgStr(l.Text) {
			seenMsgStr = true
		}
		prevObsolete = isObsolete(l.Text)
		b.Lines = append(b.Lines, l)
	}

	r.classify(b)
	return b, nil
}

func (r *Reader) classify(b *Block) {
	rec, err := parseRecord(b)
	switch {
	case err != nil:
		b.Kind = Malformed
		b.Err = err
	case rec == nil:
		b.Kind = Passthrough
	case r.OnlyEmpty && rec.MsgStr != "":
		b.Kind = Passthrough
	default:
		b.Kind = RecordBlock
		b.Record = rec
	}
}

var errNoField = errors.New("continuation line without a field")

// parseRecord returns nil, nil for blocks that are valid but not records.
func parseRecord(b *Block) (*Record, error) {
	rec := &Record{strFirst: -1, strLast: -1}
	var (
		field    string
		seen     = make(map[string]bool)
		hasEntry bool
	)

	for i, l := range b.Lines {
		lineNo := b.StartLine + i
		text := strings.TrimLeft(l.Text, " \t")

		if isObsolete(text) {
			return nil, nil
		}
		if strings.HasPrefix(text, "#") {
			if hasEntry {
				return nil, fmt.Errorf("line %d: comment inside entry", lineNo)
			}
			continue
		}

		kw, rest, isKeyword := splitKeyword(text)
		if isKeyword {
			if kw == "msgid_plural" || strings.HasPrefix(kw, "msgstr[") {
				return nil, nil
			}
			if seen[kw] {
				return nil, fmt.Errorf("line %d: duplicate %s", lineNo, kw)
			}
			seen[kw] = true
			hasEntry = true

			val, err := parseQuoted(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNo, kw, err)
			}
			switch kw {
			case "msgctxt":
				if seen["msgid"] {
					return nil, fmt.Errorf("line %d: msgctxt after msgid", lineNo)
				}
				rec.MsgCtxt = val
			case "msgid":
				rec.MsgID = val
				rec.Line = lineNo
			case "msgstr":
				if !seen["msgid"] {
					return nil, fmt.Errorf("line %d: msgstr without msgid", lineNo)
				}
				rec.MsgStr = val
				rec.strFirst, rec.strLast = i, i
			}
			field = kw
			continue
		}

		if strings.HasPrefix(text, `"`) {
			if field == "" {
				return nil, fmt.Errorf("line %d: %w", lineNo, errNoField)
			}
			val, err := parseQuoted(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			switch field {
			case "msgctxt":
				rec.MsgCtxt += val
			case "msgid":
				rec.MsgID += val
			case "msgstr":
				rec.MsgStr += val
				rec.strLast = i
			}
			continue
		}

		if hasEntry {
			return nil, fmt.Errorf("line %d: unexpected %q", lineNo, l.Text)
		}
		// Unrelated directive outside any entry.
	}

	switch {
	case !hasEntry:
		return nil, nil
	case !seen["msgid"]:
		return nil, fmt.Errorf("line %d: entry without msgid", b.StartLine)
	case !seen["msgstr"]:
		return nil, fmt.Errorf("line %d: msgid %q without msgstr", rec.Line, rec.MsgID)
	case rec.MsgID == "" && rec.MsgCtxt == "":
		// Header entry.
		return nil, nil
	}
	return rec, nil
}

// splitKeyword recognizes "msgid ...", "msgstr[0] ..." and friends.
func splitKeyword(text string) (kw, rest string, ok bool) {
	for _, k := range []string{"msgctxt", "msgid_plural", "msgid", "msgstr"} {
		if !strings.HasPrefix(text, k) {
			continue
		}
		tail := text[len(k):]
		if k == "msgstr" && strings.HasPrefix(tail, "[") {
			end := strings.IndexByte(tail, ']')
			if end < 0 {
				return "", "", false
			}
			return text[:len(k)+end+1], tail[end+1:], true
		}
		if tail == "" || tail[0] == ' ' || tail[0] == '\t' {
			return k, tail, true
		}
	}
	return "", "", false
}

func isObsolete(s string) bool {
	return strings.HasPrefix(strings.TrimLeft(s, " \t"), "#~")
}

// HasComment reports whether the block already carries the translator
// comment "# c".
func (b *Block) HasComment(c string) bool {
	for _, l := range b.Lines {
		if strings.TrimSpace(l.Text) == "# "+c {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isMsgStr(s string) bool {
	kw, _, ok := splitKeyword(strings.TrimLeft(s, " \t"))
	return ok && (kw == "msgstr" || strings.HasPrefix(kw, "msgstr["))
}

// startsEntry reports whether s can only begin a new entry.
func startsEntry(s string) bool {
	t := strings.TrimLeft(s, " \t")
	if strings.HasPrefix(t, "#") {
		return true
	}
	kw, _, ok := splitKeyword(t)
	return ok && (kw == "msgid" || kw == "msgctxt")
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Writer writes blocks back out.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 64*1024)}
}

// Write emits a block. Unchanged blocks are written exactly as read. A
// changed record gets its msgstr field rewritten and, if Comment is set, a
// translator comment in front.
func (w *Writer) Write(b *Block) error {
	rec := b.Record
	if b.Kind != RecordBlock || rec == nil || !rec.Changed() {
		for _, l := range b.Lines {
			w.bw.WriteString(l.Text)
			w.bw.WriteString(l.EOL)
		}
		return nil
	}

	if rec.Comment != "" {
		eol := b.Lines[0].EOL
		if eol == "" {
			eol = "\n"
		}
		for _, c := range strings.Split(rec.Comment, "\n") {
			fmt.Fprintf(w.bw, "# %s%s", c, eol)
		}
	}
	for i, l := range b.Lines {
		switch {
		case i == rec.strFirst:
			writeQuotedField(w.bw, msgstrPrefix(l.Text)+"msgstr", rec.MsgStr, b.Lines[rec.strLast].EOL)
		case i > rec.strFirst && i <= rec.strLast:
			// Continuation lines of the replaced msgstr.
		default:
			w.bw.WriteString(l.Text)
			w.bw.WriteString(l.EOL)
		}
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// msgstrPrefix returns the indentation in front of the msgstr keyword.
func msgstrPrefix(text string) string {
	return text[:len(text)-len(strings.TrimLeft(text, " \t"))]
}

// writeQuotedField writes a PO field with proper multiline quoting. The
// last line ends with eol; eol == "" means no terminator (end of file).
func writeQuotedField(w *bufio.Writer, field, value, eol string) {
	nl := eol
	if nl == "" {
		nl = "\n"
	}
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s%s", field, quote(value), eol)
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s \"\"", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s%s", nl, quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s%s", nl, quote(part))
		}
	}
	w.WriteString(eol)
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

var errUnterminated = errors.New("unterminated string")

// parseQuoted removes PO-style quoting from a string. Unlike a lenient
// unquote it rejects values that are not a complete quoted string.
func parseQuoted(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errUnterminated
	}
	// A closing quote preceded by an odd number of backslashes is escaped.
	bs := 0
	for i := len(s) - 2; i > 0 && s[i] == '\\'; i-- {
		bs++
	}
	if bs%2 == 1 {
		return "", errUnterminated
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String(), nil
}
