package core

import (
	"context"
	"errors"

	"github.com/agenthands/personav/internal/driver"
)

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type MockStore struct {
	Saved []driver.GraphSample
	Err   error
}

func (m *MockStore) SaveGraphSample(ctx context.Context, s driver.GraphSample) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Saved = append(m.Saved, s)
	return s.CustomID, nil
}

var errBoom = errors.New("boom")
