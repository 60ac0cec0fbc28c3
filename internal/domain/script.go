package domain

import (
	"fmt"
	"strings"
)

// Animation is the entrance effect of a scene.
type Animation string

const (
	AnimationFade    Animation = "fade"
	AnimationSlideUp Animation = "slide-up"
	AnimationPop     Animation = "pop"
)

// Valid reports whether the animation is one of the known kinds.
func (a Animation) Valid() bool {
	switch a {
	case AnimationFade, AnimationSlideUp, AnimationPop:
		return true
	}
	return false
}

// VideoScene is one text overlay of a generated script.
type VideoScene struct {
	Text            string    `json:"text"`
	BackgroundColor string    `json:"backgroundColor"`
	TextColor       string    `json:"textColor"`
	Duration        float64   `json:"duration"`
	Animation       Animation `json:"animation"`
}

// VideoScript is the AI-generated presentation metadata for a short video.
type VideoScript struct {
	Topic           string       `json:"topic"`
	Scenes          []VideoScene `json:"scenes"`
	BackgroundMusic string       `json:"backgroundMusic,omitempty"`
}

// TotalDuration sums the scene durations in seconds.
func (s *VideoScript) TotalDuration() float64 {
	var total float64
	for _, sc := range s.Scenes {
		total += sc.Duration
	}
	return total
}

// Validate checks every scene has text, a positive duration and a known animation.
func (s *VideoScript) Validate() error {
	if len(s.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes", ErrInvalidScript)
	}
	for i, sc := range s.Scenes {
		if strings.TrimSpace(sc.Text) == "" {
			return fmt.Errorf("%w: scene %d has no text", ErrInvalidScript, i)
		}
		if sc.Duration <= 0 {
			return fmt.Errorf("%w: scene %d duration must be positive", ErrInvalidScript, i)
		}
		if !sc.Animation.Valid() {
			return fmt.Errorf("%w: scene %d animation %q", ErrInvalidScript, i, sc.Animation)
		}
	}
	return nil
}
