package graph

// ReverseComplement returns the reverse complement of a nucleotide
// sequence. Unrecognized bases map to 'N'.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))

	for i := range len(seq) {
		out[len(seq)-1-i] = complementBase(seq[i])
	}

	return string(out)
}

func complementBase(b byte) byte {
	switch b {
	case 'A', 'a':
		return 'T'
	case 'T', 't':
		return 'A'
	case 'C', 'c':
		return 'G'
	case 'G', 'g':
		return 'C'
	default:
		return 'N'
	}
}
