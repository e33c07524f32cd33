package core

// InteractionWeights 是各类交互行为在画像中的权重。
type InteractionWeights struct {
	Like     float64 `koanf:"like" yaml:"like" json:"like"`
	Favorite float64 `koanf:"favorite" yaml:"favorite" json:"favorite"`
	Read     float64 `koanf:"read" yaml:"read" json:"read"`
}

// DefaultInteractionWeights 返回默认权重：like=1.0，favorite=1.5，read=0.5。
func DefaultInteractionWeights() InteractionWeights {
	return InteractionWeights{
		Like:     1.0,
		Favorite: 1.5,
		Read:     0.5,
	}
}
