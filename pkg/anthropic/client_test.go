package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient is a testify mock of Client for use in pipeline tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: `{"company_name":`},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: ` "Acme"}`},
		},
	}
	assert.Equal(t, `{"company_name": "Acme"}`, resp.Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("annual report text")
	require.Len(t, blocks, 1)
	assert.Equal(t, "annual report text", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestMockClientRoundTrip(t *testing.T) {
	mc := new(MockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001"
	})).Return(&MessageResponse{
		Content: []ContentBlock{{Type: "text", Text: "{}"}},
		Usage:   TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil)

	resp, err := mc.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 4096,
		Messages:  []Message{{Role: "user", Content: "extract"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)

	mc.AssertExpectations(t)
}
