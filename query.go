package dlinfer

import (
	"fmt"
	"io"
)

// Query writes the session details followed by the model input and output
// tensor attributes to w
func (s *Session) Query(w io.Writer) error {

	fmt.Fprintf(w, "Runtime: %s\n", s.runtime)
	fmt.Fprintf(w, "Model: %s\n", s.modelPath)
	fmt.Fprintf(w, "Artifacts: %s\n", s.artifacts)
	fmt.Fprintf(w, "Accelerated: %t\n", s.accelerated)
	fmt.Fprintf(w, "Input type: %s\n", s.inputType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if err := s.backend.Query(w); err != nil {
		return fmt.Errorf("error querying %s model: %w", s.runtime, err)
	}

	return nil
}
