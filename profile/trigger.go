package profile

// 画像重建的触发来源
const (
	TriggerManual           = "manual"
	TriggerUserCreated      = "user_created"
	TriggerInterestsUpdated = "interests_updated"
	TriggerArticleRead      = "article_read"
	TriggerArticleLiked     = "article_liked"
	TriggerArticleFavorited = "article_favorited"
)

var triggers = map[string]struct{}{
	TriggerManual:           {},
	TriggerUserCreated:      {},
	TriggerInterestsUpdated: {},
	TriggerArticleRead:      {},
	TriggerArticleLiked:     {},
	TriggerArticleFavorited: {},
}

// ValidTrigger 判断 trigger 是否为已知的触发来源。
func ValidTrigger(trigger string) bool {
	_, ok := triggers[trigger]
	return ok
}
