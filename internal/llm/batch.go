package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/agenthands/personav/internal/config"
)

const splitMarker = "_split_"

// BatchOutput is the assistant content returned for one batch request.
type BatchOutput struct {
	CustomID string `json:"custom_id"`
	Content  string `json:"content"`
}

// CustomID names the request for one prompt of an annotation file floor.
func CustomID(base, floor string, split int) string {
	return fmt.Sprintf("%s_floor_%s%s%d", base, floor, splitMarker, split)
}

// FloorPrefix is the custom id prefix shared by all prompts of a floor.
func FloorPrefix(base, floor string) string {
	return fmt.Sprintf("%s_floor_%s", base, floor)
}

// SplitIndex returns the trailing split number of a custom id, or 0 when it
// has none.
func SplitIndex(customID string) int {
	i := strings.LastIndex(customID, splitMarker)
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(customID[i+len(splitMarker):])
	if err != nil {
		return 0
	}
	return n
}

// MatchesFloor reports whether customID belongs to the floor prefix.
func MatchesFloor(customID, prefix string) bool {
	return customID == prefix || strings.HasPrefix(customID, prefix+splitMarker)
}

func NewBatchRequest(customID, prompt string, cfg config.BatchConfig) openai.BatchChatCompletionRequest {
	url := openai.BatchEndpointChatCompletions
	if cfg.URL != "" {
		url = openai.BatchEndpoint(cfg.URL)
	}
	return openai.BatchChatCompletionRequest{
		CustomID: customID,
		Method:   "POST",
		URL:      url,
		Body: ChatRequest(cfg.Model, prompt, Options{
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}),
	}
}

// WriteBatchFile writes one JSON request per line.
func WriteBatchFile(w io.Writer, reqs []openai.BatchChatCompletionRequest) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range reqs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode batch request %s: %w", r.CustomID, err)
		}
	}
	return bw.Flush()
}

// ReadBatchOutput extracts the assistant content of every line of a batch
// output file. Lines that are not JSON or carry no content are logged and
// skipped.
func ReadBatchOutput(r io.Reader, log *slog.Logger) ([]BatchOutput, error) {
	if log == nil {
		log = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var out []BatchOutput
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			log.Warn("skipping malformed batch output line", "line", lineNo)
			continue
		}
		id := gjson.Get(line, "custom_id")
		content := gjson.Get(line, "response.body.choices.0.message.content")
		if !id.Exists() || !content.Exists() {
			log.Warn("skipping batch output line without content", "line", lineNo, "custom_id", id.String())
			continue
		}
		out = append(out, BatchOutput{CustomID: id.String(), Content: content.String()})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch output: %w", err)
	}
	return out, nil
}

type outputLine struct {
	CustomID string `json:"custom_id"`
	Response struct {
		Body openai.ChatCompletionResponse `json:"body"`
	} `json:"response"`
}

// WriteBatchOutput writes outs in the batch output line format so that
// directly generated responses can be read back with ReadBatchOutput.
func WriteBatchOutput(w io.Writer, outs []BatchOutput) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, o := range outs {
		var line outputLine
		line.CustomID = o.CustomID
		line.Response.Body.Choices = []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: o.Content},
		}}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode batch output %s: %w", o.CustomID, err)
		}
	}
	return bw.Flush()
}
