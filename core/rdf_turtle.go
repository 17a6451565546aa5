package core

// Minimal Turtle 1.1 ingest subset: @prefix directives, absolute and
// prefixed IRIs, blank nodes (_:label), plain/typed/lang-tagged
// literals, and `.`-terminated triple statements, one statement per
// semantic unit (no `;`/`,` predicate-object-list shorthand). This
// covers the ingest surface spec.md §4.1 requires of C1; anything
// outside it falls back to the literal-storage path in rdf_store.go,
// which is the documented, spec-mandated behavior rather than a gap.

import (
	"fmt"
	"strings"
)

// ParseTurtle parses text into a flat triple list.
func ParseTurtle(text string) ([]Triple, error) {
	prefixes := map[string]string{}
	var triples []Triple

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@prefix") || strings.HasPrefix(line, "PREFIX") {
			p, iri, err := parsePrefixDirective(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			prefixes[p] = iri
			continue
		}
		if !strings.HasSuffix(line, ".") {
			return nil, fmt.Errorf("line %d: statement must end with '.'", lineNo+1)
		}
		line = strings.TrimSuffix(line, ".")
		toks, err := tokenizeTriple(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if len(toks) != 3 {
			return nil, fmt.Errorf("line %d: expected subject predicate object, got %d tokens", lineNo+1, len(toks))
		}
		subj, err := parseTerm(toks[0], prefixes)
		if err != nil {
			return nil, fmt.Errorf("line %d: subject: %w", lineNo+1, err)
		}
		predTerm, err := parseTerm(toks[1], prefixes)
		if err != nil {
			return nil, fmt.Errorf("line %d: predicate: %w", lineNo+1, err)
		}
		pred, ok := predTerm.(IRI)
		if !ok {
			return nil, fmt.Errorf("line %d: predicate must be an IRI", lineNo+1)
		}
		obj, err := parseTerm(toks[2], prefixes)
		if err != nil {
			return nil, fmt.Errorf("line %d: object: %w", lineNo+1, err)
		}
		triples = append(triples, Triple{Subject: subj, Predicate: pred, Object: obj})
	}
	return triples, nil
}

func parsePrefixDirective(line string) (prefix, iri string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", "", fmt.Errorf("malformed @prefix directive")
	}
	prefix = strings.TrimSuffix(fields[1], ":")
	iriTok := strings.TrimSuffix(fields[2], ".")
	if !strings.HasPrefix(iriTok, "<") || !strings.HasSuffix(iriTok, ">") {
		return "", "", fmt.Errorf("malformed @prefix IRI")
	}
	return prefix, strings.TrimSuffix(strings.TrimPrefix(iriTok, "<"), ">"), nil
}

// tokenizeTriple splits a triple's three components, respecting
// quoted literals (which may themselves contain whitespace).
func tokenizeTriple(line string) ([]string, error) {
	var toks []string
	var cur strings.Builder
	inQuote := false
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && (i == 0 || line[i-1] != '\\'):
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == '<' && !inQuote:
			depth++
			cur.WriteByte(c)
		case c == '>' && !inQuote:
			depth--
			cur.WriteByte(c)
		case c == ' ' && !inQuote && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	if inQuote {
		return nil, fmt.Errorf("unterminated literal")
	}
	return toks, nil
}

func parseTerm(tok string, prefixes map[string]string) (Term, error) {
	switch {
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return IRI(strings.TrimSuffix(strings.TrimPrefix(tok, "<"), ">")), nil
	case strings.HasPrefix(tok, "_:"):
		return BlankNode(strings.TrimPrefix(tok, "_:")), nil
	case strings.HasPrefix(tok, `"`):
		return parseLiteralToken(tok)
	case strings.Contains(tok, ":"):
		parts := strings.SplitN(tok, ":", 2)
		base, ok := prefixes[parts[0]]
		if !ok {
			return nil, fmt.Errorf("unknown prefix %q", parts[0])
		}
		return IRI(base + parts[1]), nil
	default:
		return nil, fmt.Errorf("unrecognized term %q", tok)
	}
}

func parseLiteralToken(tok string) (Literal, error) {
	// Find the closing quote, honoring backslash escapes.
	end := -1
	for i := 1; i < len(tok); i++ {
		if tok[i] == '"' && tok[i-1] != '\\' {
			end = i
			break
		}
	}
	if end < 0 {
		return Literal{}, fmt.Errorf("unterminated literal %q", tok)
	}
	lex := unescapeLexical(tok[1:end])
	rest := tok[end+1:]
	switch {
	case strings.HasPrefix(rest, "^^"):
		dt := strings.TrimSuffix(strings.TrimPrefix(rest[2:], "<"), ">")
		return Literal{Lexical: lex, Datatype: IRI(dt)}, nil
	case strings.HasPrefix(rest, "@"):
		return Literal{Lexical: lex, Lang: rest[1:]}, nil
	case rest == "":
		return Literal{Lexical: lex}, nil
	default:
		return Literal{}, fmt.Errorf("malformed literal suffix %q", rest)
	}
}

func unescapeLexical(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return r.Replace(s)
}
