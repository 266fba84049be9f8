package mcp

import "github.com/mark3labs/mcp-go/mcp"

var videoGetToolDef = mcp.NewTool("video_get",
	mcp.WithDescription("Get the video's metadata and section outline. Set include_text to return the full transcript."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithBoolean("include_text", mcp.Description("Include section transcripts")),
)

var videoSearchToolDef = mcp.NewTool("video_search",
	mcp.WithDescription("Case-insensitive search over section titles and transcripts."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to find")),
)

var commentListToolDef = mcp.NewTool("comment_list",
	mcp.WithDescription("List comments for a video: local comments first, then YouTube comments when an API key is configured."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("video_id", mcp.Description("Video id (default: configured video)")),
	mcp.WithNumber("max_results", mcp.Description("Maximum comments to return (default 20, max 100)")),
)

var commentPostToolDef = mcp.NewTool("comment_post",
	mcp.WithDescription("Post a local comment on a video."),
	mcp.WithString("video_id", mcp.Description("Video id (default: configured video)")),
	mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
	mcp.WithString("author", mcp.Description("Author name (default: Anonymous)")),
)

var progressGetToolDef = mcp.NewTool("progress_get",
	mcp.WithDescription("Get the saved playback position for a video."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("video_id", mcp.Description("Video id (default: configured video)")),
)

var progressSetToolDef = mcp.NewTool("progress_set",
	mcp.WithDescription("Save the playback position for a video."),
	mcp.WithString("video_id", mcp.Description("Video id (default: configured video)")),
	mcp.WithNumber("timestamp", mcp.Required(), mcp.Description("Position in seconds")),
)

var noteGetToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Get the note saved for a transcript section."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
)

var notePutToolDef = mcp.NewTool("note_put",
	mcp.WithDescription("Save the note for a transcript section. Empty text deletes it."),
	mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
	mcp.WithString("text", mcp.Description("Note text")),
)
