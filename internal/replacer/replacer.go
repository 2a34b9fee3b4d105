// Package replacer 在段落的文本片段（run）序列中查找并替换占位符，
// 占位符可以被任意拆分到相邻的多个 run 中，替换时保留每个 run 的格式。
package replacer

import "strings"

// Runs 表示一个段落中按顺序排列的 run。
// 替换器只能读写 run 的文本，样式句柄由实现方持有，这里无法触及。
type Runs interface {
	Len() int
	Text(i int) string
	SetText(i int, text string)
}

// Span 记录占位符落在某个 run 中的一段：run 下标、起始偏移和匹配长度（字节）
type Span struct {
	Run    int
	Offset int
	Length int
}

// state 扫描状态机的状态
type state int

const (
	searching state = iota
	accumulating
	completed
	abandoned
)

func (s state) String() string {
	switch s {
	case searching:
		return "searching"
	case accumulating:
		return "accumulating"
	case completed:
		return "completed"
	case abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Replace 在 runs 中查找 token 并替换为 value，返回替换次数。
//
// 某个 run 完整包含 token 时，直接在该 run 内替换并结束本段落的扫描，
// 即使此前已经累积了一部分跨 run 的匹配。否则按顺序拼接跨 run 的匹配：
// 第一个 run 中的匹配部分替换为 value，后续 run 中的匹配部分删除，
// 其余文本保持不变。runs 的数量和顺序不会改变，value 不会被再次扫描。
func Replace(runs Runs, token, value string) int {
	if runs == nil || token == "" {
		return 0
	}
	s := &scanner{runs: runs, token: token, value: value}
	return s.scan()
}

// scanner 单个 token 在单个段落上的一次扫描
type scanner struct {
	runs  Runs
	token string
	value string

	state   state
	spans   []Span
	matched int
	count   int

	// 放弃一次匹配后，从起始 run 中更靠右的偏移重新寻找起点
	resumeRun int
	resumeOff int
}

func (s *scanner) scan() int {
	for i := 0; i < s.runs.Len(); i++ {
		text := s.runs.Text(i)

		if strings.Contains(text, s.token) {
			s.reset()
			// 整个 run 内的每一处都替换，按实际替换的处数计数
			s.count += strings.Count(text, s.token)
			s.runs.SetText(i, strings.ReplaceAll(text, s.token, s.value))
			return s.count
		}

		s.step(i, text)

		switch s.state {
		case completed:
			s.apply()
			s.reset()
			s.resumeOff = 0
			// 最后一个 run 剩余的文本可能是下一个匹配的开头
			i--
		case abandoned:
			start := s.spans[0]
			s.reset()
			s.resumeRun, s.resumeOff = start.Run, start.Offset+1
			i = start.Run - 1
		}
	}
	return s.count
}

// step 根据当前 run 的文本推进状态机
func (s *scanner) step(i int, text string) {
	switch s.state {
	case searching:
		from := 0
		if i == s.resumeRun {
			from = s.resumeOff
		}
		off := prefixStart(text, s.token, from)
		if off < 0 {
			return
		}
		s.spans = append(s.spans, Span{Run: i, Offset: off, Length: len(text) - off})
		s.matched = len(text) - off
		s.state = accumulating

	case accumulating:
		if text == "" {
			return
		}
		rest := s.token[s.matched:]
		n := commonPrefix(text, rest)
		switch {
		case n == len(rest):
			s.spans = append(s.spans, Span{Run: i, Offset: 0, Length: n})
			s.matched += n
			s.state = completed
		case n == len(text):
			s.spans = append(s.spans, Span{Run: i, Offset: 0, Length: n})
			s.matched += n
		default:
			s.state = abandoned
		}
	}
}

// apply 把累积的 span 写回对应的 run
func (s *scanner) apply() {
	for j, sp := range s.spans {
		text := s.runs.Text(sp.Run)
		repl := ""
		if j == 0 {
			repl = s.value
		}
		s.runs.SetText(sp.Run, text[:sp.Offset]+repl+text[sp.Offset+sp.Length:])
	}
	s.count++
}

func (s *scanner) reset() {
	s.state = searching
	s.spans = s.spans[:0]
	s.matched = 0
}

// prefixStart 返回不小于 from 的最左侧偏移 off，使 text[off:] 是 token 的真前缀；不存在时返回 -1
func prefixStart(text, token string, from int) int {
	for off := from; off < len(text); {
		idx := strings.IndexByte(text[off:], token[0])
		if idx < 0 {
			return -1
		}
		off += idx
		if tail := text[off:]; len(tail) < len(token) && strings.HasPrefix(token, tail) {
			return off
		}
		off++
	}
	return -1
}

// commonPrefix 返回 a 和 b 公共前缀的字节数
func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
