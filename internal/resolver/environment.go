package resolver

import (
	"strings"

	"github.com/cbout22/repo-import/internal/config"
)

// environmentRules are checked in order; the first match wins.
var environmentRules = []struct {
	keywords []string
	image    func(config.ImageSettings) string
}{
	{[]string{"tensorflow", "keras"}, func(i config.ImageSettings) string { return i.TensorFlow }},
	{[]string{"pytorch"}, func(i config.ImageSettings) string { return i.PyTorch }},
	{[]string{"mxnet"}, func(i config.ImageSettings) string { return i.MXNet }},
}

// DeriveEnvironment picks a compute environment image from free text such as
// a URL or a README. Matching is case-insensitive.
func DeriveEnvironment(text string, images config.ImageSettings) string {
	lower := strings.ToLower(text)
	for _, rule := range environmentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.image(images)
			}
		}
	}
	return images.Generic
}
