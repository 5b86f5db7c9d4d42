package video

import "time"

type Video struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ChannelTitle   string    `json:"channelTitle"`
	Thumbnail      string    `json:"thumbnail"`
	PublishedAt    time.Time `json:"publishedAt"`
	PublishedLabel string    `json:"publishedLabel,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	ViewCount      uint64    `json:"viewCount"`
	ViewsLabel     string    `json:"viewsLabel,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Query       string `json:"-"`
}

type SearchRequest struct {
	Query      string `form:"q"`
	PageToken  string `form:"pageToken"`
	MaxResults int    `form:"max"`
}

type SearchResponse struct {
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	PrevPageToken string  `json:"prevPageToken,omitempty"`
	TotalResults  int     `json:"totalResults"`
}

// CategoryVideos is one row of the featured view.
type CategoryVideos struct {
	Category Category `json:"category"`
	Videos   []Video  `json:"videos"`
}

var categories = []Category{
	{ID: "general", Name: "General Health", Description: "Everyday health tips and explainers", Query: "general health tips doctor explains"},
	{ID: "nutrition", Name: "Nutrition", Description: "Healthy eating and diet", Query: "healthy eating nutrition advice"},
	{ID: "fitness", Name: "Fitness", Description: "Exercise and staying active", Query: "beginner exercise workout health"},
	{ID: "mental-health", Name: "Mental Health", Description: "Stress, anxiety and wellbeing", Query: "mental health anxiety stress management"},
	{ID: "heart", Name: "Heart Health", Description: "Blood pressure and heart care", Query: "heart health blood pressure explained"},
	{ID: "diabetes", Name: "Diabetes", Description: "Living with and preventing diabetes", Query: "diabetes management prevention explained"},
	{ID: "sleep", Name: "Sleep", Description: "Better sleep habits", Query: "how to sleep better sleep hygiene"},
	{ID: "first-aid", Name: "First Aid", Description: "Basic first aid skills", Query: "first aid basics CPR tutorial"},
}

// Categories returns the browsable categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func CategoryByID(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
