package cache

import (
	"encoding/json"
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

func encodeAssessment(a *domain.Assessment) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot cache nil assessment")
	}
	if a.Domain == "" {
		return nil, fmt.Errorf("assessment %s has no domain", a.ID)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assessment: %w", err)
	}
	return data, nil
}

func decodeAssessment(data []byte) (*domain.Assessment, error) {
	var a domain.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode cached assessment: %w", err)
	}
	return &a, nil
}
