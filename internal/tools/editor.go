package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"navidad-ai/common"
	"navidad-ai/internal/editor"
	"navidad-ai/internal/utils"
)

const (
	listPresetsToolName = "navidad_list_presets"
	editImageToolName   = "navidad_edit_image"
)

// RegisterEditorTools 注册预设列表和图片编辑两个 MCP tools
func RegisterEditorTools(s *server.MCPServer, ed editor.Editor, maxUploadBytes int64) error {
	if ed == nil {
		return fmt.Errorf("editor is required")
	}

	listPresetsTool := mcp.NewTool(
		listPresetsToolName,
		mcp.WithDescription("List the built-in Christmas editing presets. Returns a JSON array with id, label, description and instruction."),
	)
	s.AddTool(listPresetsTool, listPresetsHandler)

	editImageTool := mcp.NewTool(
		editImageToolName,
		mcp.WithDescription("Edit a photo with Gemini. Provide the image as a data URI or http(s) URL, and either a preset_id or a free-text instruction. Returns the edited PNG image."),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("Data URI or http(s) URL of the image to edit (max 5MB)"),
		),
		mcp.WithString("preset_id",
			mcp.Description("Preset to apply: navidad-full, navidad-fondo or navidad-gorro"),
		),
		mcp.WithString("instruction",
			mcp.Description("Free-text editing instruction, used when preset_id is empty"),
		),
	)
	s.AddTool(editImageTool, editImageHandler(ed, maxUploadBytes))

	return nil
}

func listPresetsHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(editor.Presets())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode presets: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// editImageHandler 每次调用使用一个临时会话，复用与 HTTP 相同的状态机
func editImageHandler(ed editor.Editor, maxUploadBytes int64) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := req.RequireString("image")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image parameter is required: %v", err)), nil
		}
		presetID := req.GetString("preset_id", "")
		instruction := req.GetString("instruction", "")

		data, mimeType, err := utils.LoadImage(ctx, ref, maxUploadBytes)
		if errors.Is(err, utils.ErrImageTooLarge) {
			return toolError(editor.ErrFileTooLarge), nil
		}
		if err != nil {
			common.WithError(err).WithField("image", utils.TruncateForLog(ref, 64)).Warn("Failed to load image for MCP edit")
			return mcp.NewToolResultError(fmt.Sprintf("failed to load image: %v", err)), nil
		}

		sess := editor.NewSession(uuid.NewString(), ed, editor.WithMaxUploadBytes(maxUploadBytes))
		if err := sess.Upload(editor.SourceImage{Data: data, MIMEType: mimeType}); err != nil {
			return toolError(err), nil
		}

		var snap editor.Snapshot
		if presetID != "" {
			snap, err = sess.GeneratePreset(ctx, presetID)
		} else {
			snap, err = sess.Generate(ctx, instruction)
		}
		if err != nil {
			return toolError(err), nil
		}

		res, name, err := sess.Result()
		if err != nil {
			return toolError(err), nil
		}

		return mcp.NewToolResultImage(
			fmt.Sprintf("Edited image (%s, status %s)", name, snap.Status),
			base64.StdEncoding.EncodeToString(res.Data),
			res.MIMEType,
		), nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", editor.Kind(err), editor.UserMessage(err)))
}
