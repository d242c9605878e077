// Command batchtxt normalizes a directory tree of Chinese text files to
// UTF-8 Simplified Chinese, rewriting file content and file names in place.
package main

func main() {
	Execute()
}
