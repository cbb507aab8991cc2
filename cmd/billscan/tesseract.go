//go:build tesseract

package main

import _ "billscan/internal/ocr/tesseract"
