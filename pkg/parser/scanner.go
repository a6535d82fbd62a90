package parser

// scanState is the state of the CSV field scanner.
type scanState uint8

const (
	stateFieldStart scanState = iota
	stateInField
	stateInQuoted
	stateQuoteInQuoted
)

// Scanner splits delimited records with a small state machine. It handles
// embedded delimiters, doubled quotes and quoted fields spanning lines: feed
// it physical lines and it reports when a logical record is complete.
type Scanner struct {
	delimiter byte
	state     scanState

	fields []string
	field  []byte
}

// NewScanner creates a scanner for the given delimiter.
func NewScanner(delimiter byte) *Scanner {
	return &Scanner{delimiter: delimiter}
}

// Reset discards any partial record.
func (s *Scanner) Reset() {
	s.state = stateFieldStart
	s.fields = nil
	s.field = s.field[:0]
}

// Feed consumes one physical line without its line terminator. It returns the
// record fields and true once the record is complete; false means a quoted
// field is still open and the next line continues it.
func (s *Scanner) Feed(line []byte) ([]string, bool) {
	if s.state == stateInQuoted {
		// Continuation of a quoted field: restore the consumed newline.
		s.field = append(s.field, '\n')
	}

	for _, c := range line {
		switch s.state {
		case stateFieldStart:
			switch c {
			case '"':
				s.state = stateInQuoted
			case s.delimiter:
				s.endField()
			default:
				s.field = append(s.field, c)
				s.state = stateInField
			}

		case stateInField:
			if c == s.delimiter {
				s.endField()
			} else {
				s.field = append(s.field, c)
			}

		case stateInQuoted:
			if c == '"' {
				s.state = stateQuoteInQuoted
			} else {
				s.field = append(s.field, c)
			}

		case stateQuoteInQuoted:
			switch c {
			case '"':
				s.field = append(s.field, '"')
				s.state = stateInQuoted
			case s.delimiter:
				s.endField()
			default:
				// Stray character after a closing quote: keep it.
				s.field = append(s.field, c)
				s.state = stateInField
			}
		}
	}

	if s.state == stateInQuoted {
		return nil, false
	}

	s.endField()
	fields := s.fields
	s.fields = nil
	return fields, true
}

// Pending reports whether a quoted field is still open.
func (s *Scanner) Pending() bool {
	return s.state == stateInQuoted
}

// Flush returns a record left open at end of input, treating the
// unterminated quote as closed.
func (s *Scanner) Flush() []string {
	if s.state != stateInQuoted {
		return nil
	}
	s.endField()
	fields := s.fields
	s.fields = nil
	return fields
}

func (s *Scanner) endField() {
	s.fields = append(s.fields, string(s.field))
	s.field = s.field[:0]
	s.state = stateFieldStart
}
