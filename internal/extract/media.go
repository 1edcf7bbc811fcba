package extract

import (
	"fmt"
	"strings"

	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/types"
)

const (
	defaultImageMIME = "image/png"
	defaultVideoMIME = "video/mp4"
)

// Image extracts the first generated image.
func Image(resp *llm.Response) (*types.MediaArtifact, error) {
	if resp == nil {
		return nil, &types.Error{Kind: types.KindUnparsable, Message: "empty response"}
	}

	var filtered string
	for _, path := range [][][]string{
		{k("predictions")},
		{k("generatedImages", "generated_images")},
	} {
		items, ok := walk(resp.Body, path...)
		if !ok {
			continue
		}
		item, ok := first(items)
		if !ok {
			continue
		}
		if reason := lookupString(item, "raiFilteredReason", "rai_filtered_reason"); reason != "" && filtered == "" {
			filtered = reason
		}

		// Imagen REST puts bytes on the prediction; SDK-style nests them under "image".
		holder := item
		if nested, ok := lookup(item, "image"); ok {
			holder = nested
		}
		encoded := lookupString(holder, "bytesBase64Encoded", "imageBytes", "image_bytes")
		if encoded == "" {
			continue
		}
		data, ok := decodeBase64(encoded)
		if !ok {
			return nil, &types.Error{Kind: types.KindUnparsable, Message: "image bytes are not valid base64", Raw: resp.Raw}
		}
		mime := lookupString(holder, "mimeType", "mime_type")
		if mime == "" {
			mime = defaultImageMIME
		}
		return types.NewMediaArtifact(types.MediaImage, data, mime), nil
	}

	if filtered != "" {
		return nil, &types.Error{
			Kind:    types.KindGenerationFailed,
			Message: fmt.Sprintf("image filtered by the service: %s", filtered),
			Raw:     resp.Raw,
		}
	}
	return nil, &types.Error{Kind: types.KindUnparsable, Message: "no image in response", Raw: resp.Raw}
}

// OperationState is the normalized view of a video job status response
type OperationState struct {
	Handle string
	Status types.JobStatus
	Reason string
}

// Operation reads the job handle and status from a submission or poll response.
func Operation(resp *llm.Response) (OperationState, error) {
	if resp == nil {
		return OperationState{}, &types.Error{Kind: types.KindUnparsable, Message: "empty response"}
	}
	doc := resp.Body
	state := OperationState{Handle: lookupString(doc, "name", "id", "operation", "job_id")}

	// Long-running operation shape: done + error|response
	if rawDone, ok := lookup(doc, "done"); ok {
		done, isBool := rawDone.(bool)
		if !isBool {
			return OperationState{}, &types.Error{Kind: types.KindUnparsable, Message: "operation done flag is not a boolean", Raw: resp.Raw}
		}
		switch {
		case !done:
			state.Status = types.JobRunning
			if explicit, ok := explicitStatus(doc); ok && explicit == types.JobPending {
				state.Status = types.JobPending
			}
		case hasError(doc):
			state.Status = types.JobFailed
			state.Reason = errorReason(doc)
		default:
			state.Status = types.JobSucceeded
		}
		return state, nil
	}

	if explicit, ok := explicitStatus(doc); ok {
		state.Status = explicit
		if explicit == types.JobFailed {
			state.Reason = errorReason(doc)
		}
		return state, nil
	}

	// A bare acknowledgement carries only the handle
	if state.Handle != "" {
		state.Status = types.JobPending
		return state, nil
	}

	return OperationState{}, &types.Error{Kind: types.KindUnparsable, Message: "no job handle or status in response", Raw: resp.Raw}
}

func explicitStatus(doc any) (types.JobStatus, bool) {
	raw := lookupString(doc, "state", "status")
	if raw == "" {
		if meta, ok := lookup(doc, "metadata"); ok {
			raw = lookupString(meta, "state", "status")
		}
	}
	if raw == "" {
		return "", false
	}
	switch strings.TrimPrefix(strings.ToUpper(raw), "JOB_STATE_") {
	case "PENDING", "QUEUED", "QUEUEING", "SUBMITTED":
		return types.JobPending, true
	case "RUNNING", "PROCESSING", "IN_PROGRESS", "ACTIVE":
		return types.JobRunning, true
	case "SUCCEEDED", "SUCCESS", "COMPLETED", "DONE":
		return types.JobSucceeded, true
	case "FAILED", "FAIL", "ERROR", "CANCELLED", "CANCELED":
		return types.JobFailed, true
	}
	return "", false
}

func hasError(doc any) bool {
	_, ok := lookup(doc, "error")
	return ok
}

func errorReason(doc any) string {
	if errBlock, ok := lookup(doc, "error"); ok {
		if s, ok := str(errBlock); ok {
			return strings.TrimSpace(s)
		}
		if msg := lookupString(errBlock, "message"); msg != "" {
			return msg
		}
	}
	return lookupString(doc, "failure_reason", "failureReason", "message")
}

// VideoOutput is where the finished video lives: inline bytes or a download URI
type VideoOutput struct {
	URI      string
	Bytes    []byte
	MIMEType string
}

// Video extracts the first generated video from a finished operation.
func Video(resp *llm.Response) (VideoOutput, error) {
	if resp == nil {
		return VideoOutput{}, &types.Error{Kind: types.KindUnparsable, Message: "empty response"}
	}
	body, ok := lookup(resp.Body, "response", "result")
	if !ok {
		body = resp.Body
	}

	for _, path := range [][][]string{
		{k("generateVideoResponse", "generate_video_response"), k("generatedSamples", "generated_samples")},
		{k("generatedVideos", "generated_videos")},
		{k("videos")},
	} {
		items, ok := walk(body, path...)
		if !ok {
			continue
		}
		item, ok := first(items)
		if !ok {
			continue
		}
		holder := item
		if nested, ok := lookup(item, "video"); ok {
			holder = nested
		}
		out := VideoOutput{
			URI:      lookupString(holder, "uri", "gcsUri", "gcs_uri"),
			MIMEType: lookupString(holder, "mimeType", "mime_type"),
		}
		if encoded := lookupString(holder, "videoBytes", "video_bytes", "bytesBase64Encoded"); encoded != "" {
			data, ok := decodeBase64(encoded)
			if !ok {
				return VideoOutput{}, &types.Error{Kind: types.KindUnparsable, Message: "video bytes are not valid base64", Raw: resp.Raw}
			}
			out.Bytes = data
		}
		if out.URI == "" && len(out.Bytes) == 0 {
			continue
		}
		if out.MIMEType == "" {
			out.MIMEType = defaultVideoMIME
		}
		return out, nil
	}

	if reasons := filteredReasons(body); len(reasons) > 0 {
		return VideoOutput{}, &types.Error{
			Kind:    types.KindGenerationFailed,
			Message: fmt.Sprintf("video filtered by the service: %s", strings.Join(reasons, "; ")),
			Raw:     resp.Raw,
		}
	}
	return VideoOutput{}, &types.Error{Kind: types.KindUnparsable, Message: "no video in finished operation", Raw: resp.Raw}
}

func filteredReasons(body any) []string {
	raw, ok := walk(body, k("generateVideoResponse", "generate_video_response"), k("raiMediaFilteredReasons", "rai_media_filtered_reasons"))
	if !ok {
		raw, ok = lookup(body, "raiMediaFilteredReasons", "rai_media_filtered_reasons")
	}
	if !ok {
		return nil
	}
	items, _ := list(raw)
	var out []string
	for _, item := range items {
		if s, ok := str(item); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
