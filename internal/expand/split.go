package expand

// fieldSplit implements spec.md §4.4 step 2: every maximal run of
// SoftExpansion, unquoted characters that are members of IFS delimits
// a field boundary. IFS whitespace collapses adjacent empty fields;
// each non-whitespace IFS member forces exactly one new boundary by
// itself, matching POSIX's "each occurrence... delimits a field"
// distinction between whitespace and non-whitespace separators.
func (e *Expander) fieldSplit(phrase Phrase) Phrase {
	ifs := e.Vars.IFS()
	if ifs == "" {
		// spec.md §8: IFS="" concatenates everything into a single field.
		return Phrase{phrase.Flatten()}
	}
	whitespace, punctuation := classifyIFS(ifs)

	var out Phrase
	for _, field := range phrase {
		out = append(out, splitOneField(field, whitespace, punctuation)...)
	}
	return out
}

func classifyIFS(ifs string) (whitespace map[rune]bool, punctuation map[rune]bool) {
	whitespace = map[rune]bool{}
	punctuation = map[rune]bool{}
	for _, r := range ifs {
		if r == ' ' || r == '\t' || r == '\n' {
			whitespace[r] = true
		} else {
			punctuation[r] = true
		}
	}
	return
}

func splitOneField(field Field, whitespace, punctuation map[rune]bool) Phrase {
	var fields Phrase
	var cur Field
	haveCur := false
	i := 0
	n := len(field)

	isSep := func(c AttrChar) (ws bool, sep bool) {
		if c.Quoted || c.Origin != OriginSoftExpansion {
			return false, false
		}
		if whitespace[c.Value] {
			return true, true
		}
		if punctuation[c.Value] {
			return false, true
		}
		return false, false
	}

	// Skip leading IFS whitespace.
	for i < n {
		if ws, sep := isSep(field[i]); sep && ws {
			i++
			continue
		}
		break
	}

	for i < n {
		ws, sep := isSep(field[i])
		if !sep {
			cur = append(cur, field[i])
			haveCur = true
			i++
			continue
		}
		// Flush whatever we have accumulated as one field.
		fields = append(fields, cur)
		cur = nil
		haveCur = false
		i++
		// Absorb the IFS whitespace around this separator together with
		// at most one punctuation separator among it, so "a : b" and
		// "a: b" split like "a:b" while "a::b" keeps its empty field.
		for i < n {
			w2, s2 := isSep(field[i])
			if !s2 || (!w2 && !ws) {
				break
			}
			ws = ws && w2
			i++
		}
	}
	// A trailing separator never opens an empty final field, and a field
	// that was nothing but unquoted expansion residue (empty, or only
	// IFS whitespace) vanishes entirely: `cmd $unset` passes zero
	// arguments while `cmd ""` still passes one (its quoting characters
	// keep the field non-empty until quote removal).
	if haveCur {
		fields = append(fields, cur)
	}
	return fields
}
