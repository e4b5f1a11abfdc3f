package media

import (
	"bytes"
	"context"
	"encoding/base64"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"

	"github.com/zap-ai/zapai/pkg/logging"
)

var enricherTracer = otel.Tracer("zapai.internal.media.enricher")

// Failure placeholders are user-visible transcript content, so they stay in
// the conversation language.
const (
	emptyAudio         = "(Áudio vazio)"
	transcriptionError = "(Erro na transcrição)"
	noDescription      = "(Sem descrição)"
	imageError         = "(Erro na análise da imagem)"
)

const imagePrompt = "Você é um assistente de atendimento. Esta imagem foi enviada pelo usuário. " +
	"Se for um comprovante de pagamento, extraia os dados principais (valor, data, pagador, recebedor). " +
	"Se não for, descreva brevemente o que é."

type transcriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Enricher turns audio and image payloads into text the conversation engine
// can reason about. Failures degrade to placeholder strings so a broken media
// pipeline never drops a message.
type Enricher struct {
	client transcriber
	model  string
	logger *logging.Logger
}

func NewEnricher(client transcriber, visionModel string, logger *logging.Logger) *Enricher {
	if client == nil {
		panic("media: openai client required")
	}
	if visionModel == "" {
		visionModel = openai.GPT4oMini
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Enricher{client: client, model: visionModel, logger: logger.Component("media_enricher")}
}

// TranscribeAudio runs a voice note through Whisper.
func (e *Enricher) TranscribeAudio(ctx context.Context, b64 string) string {
	ctx, span := enricherTracer.Start(ctx, "media.transcribe")
	defer span.End()

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		e.logger.Warn("audio payload not valid base64", "error", err)
		return transcriptionError
	}
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio.ogg",
		Reader:   bytes.NewReader(raw),
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("transcription failed", "error", err)
		return transcriptionError
	}
	if resp.Text == "" {
		return emptyAudio
	}
	return resp.Text
}

// DescribeImage asks the vision model what the customer sent. Payment
// receipts get their key fields extracted so the agent can cross-check them.
func (e *Enricher) DescribeImage(ctx context.Context, b64 string) string {
	ctx, span := enricherTracer.Start(ctx, "media.describe_image")
	defer span.End()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: imagePrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: "data:image/jpeg;base64," + b64,
					},
				},
			},
		}},
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("image analysis failed", "error", err)
		return imageError
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return noDescription
	}
	return resp.Choices[0].Message.Content
}
