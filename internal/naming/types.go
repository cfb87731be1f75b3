package naming

import "strings"

// ResourceType is a category of bundle content
type ResourceType string

const (
	// TypeMain holds raw API data
	TypeMain ResourceType = "main"

	// TypeBasic holds general assets such as event banners
	TypeBasic ResourceType = "basic"

	// TypeMovie holds movie assets
	TypeMovie ResourceType = "movie"

	// TypeSound holds sound and voice assets
	TypeSound ResourceType = "sound"

	// TypeUnsupported holds large assets that clients cannot use directly
	TypeUnsupported ResourceType = "unsupported"

	// TypeShared holds assets common to every locale
	TypeShared ResourceType = "shared"
)

// KnownTypes returns every resource type published by the bundle generator
func KnownTypes() []ResourceType {
	return []ResourceType{TypeMain, TypeBasic, TypeMovie, TypeSound, TypeUnsupported, TypeShared}
}

// IsKnown reports whether t is one of KnownTypes
func (t ResourceType) IsKnown() bool {
	for _, known := range KnownTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// unsupportedPrefixes are asset directories that are only published in the unsupported bundle
var unsupportedPrefixes = []string{
	"characters/ingameresourceset",
	"live2d",
	"musicscore",
	"pickupsituation",
	"star3d",
	"additional_music",
	"ani_degree_aniver_8.5th_rip",
	"animationbg",
	"appeal",
	"bili",
	"bilispend_rip",
	"birthday",
	"birthdayintroduction",
	"birthdayintroduction2021_rip",
	"changedstamp",
	"character_name_rip",
	"character_profile_data_rip",
	"characterprofile",
	"commenthomebanner_rip",
	"effect",
	"eventcommon_rip",
	"friendinvite",
	"genericanimation",
	"graphicalinfo",
	"growthfund_mission",
	"homebanner_rip",
	"limitedmission",
	"limitedpage",
	"loading",
	"map",
	"memorial",
	"multiplay",
	"newsituationintroduction_rip",
	"newyearcard",
	"newyearholidays",
	"popipa_10th_rip",
	"speciallottery",
	"specialtraining",
	"starshop",
	"thumb/billinggoods",
	"thumb/characterrank_exp_rip",
	"thumb/costume3ddress",
	"thumb/costume3dhairstyle",
	"thumb/limiteditem_rip",
	"thumb/selfintroductionepisode_rip",
	"thumbnail",
	"title",
	"tutorial_rip",
	"worldmap_rip",
	"april",
	"button_",
	"bili_bottun",
}

// TypeForAssetPath classifies an asset path, relative to assets/<locale>/, into the bundle that carries it
func TypeForAssetPath(path string) ResourceType {
	path = strings.TrimPrefix(path, "/")
	for _, prefix := range unsupportedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return TypeUnsupported
		}
	}
	switch {
	case strings.HasPrefix(path, "movie"):
		return TypeMovie
	case strings.HasPrefix(path, "sound"):
		return TypeSound
	default:
		return TypeBasic
	}
}

// KeyForAssetPath maps a path of the form <locale>/<asset path> to the key of the bundle carrying it.
// The returned path is the location of the asset inside that bundle's working copy.
func KeyForAssetPath(path string) (ResourceKey, string, bool) {
	path = strings.TrimPrefix(path, "/")
	locale, rest, ok := strings.Cut(path, "/")
	if !ok || locale == "" || rest == "" {
		return ResourceKey{}, "", false
	}
	key := ResourceKey{Locale: locale, Type: string(TypeForAssetPath(rest))}
	if key.Validate() != nil {
		return ResourceKey{}, "", false
	}
	return key, path, true
}
