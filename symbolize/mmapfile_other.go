//go:build !unix

package symbolize

import "os"

func openImage(filename string) (imageFile, error) {
	return os.Open(filename)
}
