package skls_test

import (
	"fmt"

	"github.com/soundprediction/skls"
)

func ExampleChunkText() {
	text := "First paragraph.\n\nSecond one.\n\nA third paragraph that is longer."
	for _, chunk := range skls.ChunkText(text, 32) {
		fmt.Printf("%q\n", chunk)
	}
	// Output:
	// "First paragraph.\n\nSecond one."
	// "A third paragraph that is"
	// "longer."
}
