package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	` _        _       _               `,
	`| |_ _ __(_)_   _(_)_   _ _ __ ___  `,
	`| __| '__| \ \ / / | | | | '_ ` + "`" + ` _ \ `,
	`| |_| |  | |\ V /| | |_| | | | | | |`,
	` \__|_|  |_| \_/ |_|\__,_|_| |_| |_|`,
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the banner to w, coloured when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w)
}
