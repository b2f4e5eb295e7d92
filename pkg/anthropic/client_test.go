package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
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

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	req := MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4096,
		Messages: []Message{{
			Role:    "user",
			Content: "Extract the form.",
			Images:  []Image{{MediaType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
		}},
	}
	mc.On("CreateMessage", mock.Anything, req).Return(&MessageResponse{
		ID:      "msg_1",
		Content: []ContentBlock{{Type: "text", Text: `{"facilityName":"Acme"}`}},
	}, nil)

	resp, err := mc.CreateMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"facilityName":"Acme"}`, resp.Text())
	mc.AssertExpectations(t)
}

func TestCreateMessage_MockClientError(t *testing.T) {
	mc := new(MockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := mc.CreateMessage(context.Background(), MessageRequest{})
	require.Error(t, err)
}

func TestMessageResponse_TextJoinsTextBlocks(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "```json\n{"},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: "}\n```"},
	}}
	assert.Equal(t, "```json\n{}\n```", resp.Text())
}

func TestToSDKMessages_ImagesPrecedeText(t *testing.T) {
	msgs := toSDKMessages([]Message{{
		Role:    "user",
		Content: "Extract.",
		Images: []Image{
			{MediaType: "image/jpeg", Data: []byte("page-1")},
			{MediaType: "image/jpeg", Data: []byte("page-2")},
		},
	}})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 3)
	require.NotNil(t, msgs[0].Content[0].OfImage)
	require.NotNil(t, msgs[0].Content[1].OfImage)
	require.NotNil(t, msgs[0].Content[2].OfText)
	assert.Equal(t, "Extract.", msgs[0].Content[2].OfText.Text)
}

func TestToSDKMessages_AssistantRole(t *testing.T) {
	msgs := toSDKMessages([]Message{{Role: "assistant", Content: "{"}})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 1)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	// write: 3.00 * 1.25, read: 3.00 * 0.1
	assert.InDelta(t, 4.05, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000}
	assert.Equal(t, 0.0, u.EstimateCost("unknown-model"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 50}
	assert.NotPanics(t, func() { u.LogCost("claude-haiku-4-5-20251001", "extract") })
}
