package catalogue

const (
	ToolGenerateContent = "generate_content"
	ToolGenerateImage   = "generate_image"
	ToolSavePost        = "save_post"
	ToolListPosts       = "list_posts"
	ToolGetPost         = "get_post"
	ToolUpdatePost      = "update_post"
	ToolSchedulePost    = "schedule_post"
	ToolPublishPost     = "publish_post"
	ToolDeletePost      = "delete_post"
)

var platforms = []string{"twitter", "instagram", "linkedin", "facebook", "tiktok"}

// Default returns the social media tool set.
func Default() *Catalogue {
	c, err := New(Version, defaultTools()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultTools() []Tool {
	postID := Parameter{Name: "post_id", Type: TypeInteger, Description: "Identifier of a saved post", Required: true}

	return []Tool{
		{
			Name:        ToolGenerateContent,
			Description: "Write social media copy about a topic for a given platform.",
			Parameters: []Parameter{
				{Name: "topic", Type: TypeString, Description: "What the post is about", Required: true},
				{Name: "platform", Type: TypeString, Description: "Target platform", Enum: platforms},
				{Name: "tone", Type: TypeString, Description: "Writing tone, e.g. casual or professional"},
				{Name: "max_length", Type: TypeInteger, Description: "Maximum number of characters"},
			},
		},
		{
			Name:        ToolGenerateImage,
			Description: "Generate an image for a post and return its URL.",
			Parameters: []Parameter{
				{Name: "prompt", Type: TypeString, Description: "Description of the image", Required: true},
				{Name: "size", Type: TypeString, Description: "Image size", Enum: []string{"1024x1024", "1792x1024", "1024x1792"}},
				{Name: "style", Type: TypeString, Description: "Visual style", Enum: []string{"vivid", "natural"}},
			},
		},
		{
			Name:        ToolSavePost,
			Description: "Save a post as a draft for the current user.",
			Parameters: []Parameter{
				{Name: "content", Type: TypeString, Description: "Post text", Required: true},
				{Name: "platform", Type: TypeString, Description: "Target platform", Required: true, Enum: platforms},
				{Name: "image_url", Type: TypeString, Description: "Optional image URL"},
				{Name: "hashtags", Type: TypeArray, Items: TypeString, Description: "Hashtags without the leading #"},
			},
		},
		{
			Name:        ToolListPosts,
			Description: "List the current user's posts, newest first.",
			Parameters: []Parameter{
				{Name: "status", Type: TypeString, Description: "Filter by status", Enum: []string{"draft", "scheduled", "published"}},
				{Name: "platform", Type: TypeString, Description: "Filter by platform", Enum: platforms},
				{Name: "limit", Type: TypeInteger, Description: "Maximum number of posts to return"},
			},
		},
		{
			Name:        ToolGetPost,
			Description: "Fetch one post by id.",
			Parameters:  []Parameter{postID},
		},
		{
			Name:        ToolUpdatePost,
			Description: "Edit a draft or scheduled post.",
			Parameters: []Parameter{
				postID,
				{Name: "content", Type: TypeString, Description: "New post text"},
				{Name: "image_url", Type: TypeString, Description: "New image URL"},
				{Name: "hashtags", Type: TypeArray, Items: TypeString, Description: "Replacement hashtags"},
			},
		},
		{
			Name:        ToolSchedulePost,
			Description: "Schedule a saved post for later publication.",
			Parameters: []Parameter{
				postID,
				{Name: "publish_at", Type: TypeString, Description: "Publication time in RFC3339 format", Required: true},
			},
		},
		{
			Name:        ToolPublishPost,
			Description: "Publish a saved post now.",
			Parameters: []Parameter{
				postID,
				{Name: "platforms", Type: TypeArray, Items: TypeString, Description: "Platforms to publish to; defaults to the post's platform"},
			},
		},
		{
			Name:        ToolDeletePost,
			Description: "Delete a post that has not been published.",
			Parameters:  []Parameter{postID},
		},
	}
}
