package api

type (
	// Modality identifies the kind of content a flow asks the model for
	Modality string

	// ResponseModality is a content kind requested in a model response
	ResponseModality string

	// GenerationConfig carries optional per-flow generation settings
	GenerationConfig struct {
		ResponseModalities []ResponseModality `json:"response_modalities,omitempty"`
		Temperature        *float64           `json:"temperature,omitempty"`
	}

	// ModelInvocationSpec is the ephemeral request handed to a model client
	// for a single execution
	ModelInvocationSpec struct {
		Input    Args              `json:"input,omitempty"`
		Output   Schema            `json:"output,omitempty"`
		Config   *GenerationConfig `json:"config,omitempty"`
		Model    string            `json:"model"`
		Prompt   string            `json:"prompt,omitempty"`
		Modality Modality          `json:"modality"`
	}

	// MediaDescriptor references generated media by URI
	MediaDescriptor struct {
		URI      string `json:"uri"`
		MIMEType string `json:"mime_type,omitempty"`
	}

	// InvocationResult is what a model client returns. Structured flows fill
	// Output, media flows fill Media
	InvocationResult struct {
		Output Args             `json:"output,omitempty"`
		Media  *MediaDescriptor `json:"media,omitempty"`
	}
)

const (
	ModalityText         Modality = "TEXT"
	ModalityTextAndImage Modality = "TEXT_AND_IMAGE"

	ResponseText  ResponseModality = "TEXT"
	ResponseImage ResponseModality = "IMAGE"
)

// IsMedia reports whether the invocation expects generated media
func (s *ModelInvocationSpec) IsMedia() bool {
	return s.Modality == ModalityTextAndImage
}
