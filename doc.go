/*
Package backdrop is an image processing library which applies colour filters to images
and places the foreground of an image over a new background once the original one has been removed.

The package provides a command line utility supporting various customization options.
Check the supported commands by typing:

	$ backdrop --help

All the transforms work on in-memory buffers and return a new buffer, the source is never modified.

Example to apply a sepia filter and restore the original image afterwards:

	package main

	import (
		"fmt"
		"github.com/esimov/backdrop"
	)

	func main() {
		src, _ := backdrop.FromImage(img)
		p, err := backdrop.NewPipeline(src)
		if err != nil {
			fmt.Printf("Error creating the pipeline: %s", err.Error())
		}

		sepia, _ := p.ApplyFilter(backdrop.FilterSepia)
		// ... display sepia
		original := p.Reset()
	}

Example to remove a green screen and place the subject over a new background:

	package main

	import (
		"context"
		"fmt"
		"image/color"
		"github.com/esimov/backdrop"
	)

	func main() {
		p, _ := backdrop.NewPipeline(src, backdrop.WithRemover(backdrop.ColorKey{
			Key:       color.NRGBA{G: 0xff, A: 0xff},
			Tolerance: 40,
		}))
		out, err := p.SetBackground(context.Background(), bg)
		if err != nil {
			fmt.Printf("Error replacing the background: %s", err.Error())
		}
	}
*/
package backdrop
