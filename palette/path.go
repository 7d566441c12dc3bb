package palette

import "strings"

func splitPath(p string) []string {
	return strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
}

// ResolvePath works out where the palette named in a sprite header most
// likely lives now. The declared name is usually an absolute path from the
// machine the sprite was authored on, so the only stable anchor is a shared
// directory name.
//
// The deepest declared directory that also appears among the directories of
// graphic (compared case-insensitively) is used as the pivot: the result is
// the graphic path up to and including that directory, followed by whatever
// declared directories came after it and the palette file name. If nothing
// matches, the palette is assumed to sit next to the graphic.
//
// Separators in the result are always forward slashes.
func ResolvePath(declared, graphic string) string {
	declared = strings.TrimRight(declared, "\x00")
	if declared == "" {
		return ""
	}

	pal := splitPath(declared)
	gfx := splitPath(graphic)
	dirs := gfx[:len(gfx)-1]

	for i := len(pal) - 2; i >= 0; i-- {
		if pal[i] == "" {
			continue
		}
		for j := len(dirs) - 1; j >= 0; j-- {
			if strings.EqualFold(pal[i], dirs[j]) {
				parts := append(append([]string{}, dirs[:j+1]...), pal[i+1:]...)
				return strings.Join(parts, "/")
			}
		}
	}

	name := pal[len(pal)-1]
	if len(dirs) == 0 {
		return name
	}
	return strings.Join(dirs, "/") + "/" + name
}
