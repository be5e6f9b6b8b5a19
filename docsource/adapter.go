package docsource

import "context"

// BitmatrixDocument adapts a Source bound to a fixed k and canonicalize
// flag into the minimal single-method shape classicbuild's bitmatrix
// population loop expects, applying pack/canonicalize per §4.4's
// construction algorithm before each term reaches the caller.
type BitmatrixDocument struct {
	Source       Source
	K            int
	Canonicalize func([]byte) ([]byte, error)
}

// ProcessTerms satisfies bitmatrix.Document.
func (d BitmatrixDocument) ProcessTerms(ctx context.Context, fn func(term []byte) error) error {
	return d.Source.ProcessTerms(ctx, d.K, func(term []byte) error {
		if d.Canonicalize != nil {
			t, err := d.Canonicalize(term)
			if err != nil {
				return err
			}
			term = t
		}
		return fn(term)
	})
}
