// Package ocr defines the contract for plugging OCR engines (a local
// Tesseract, a remote service) into title transcription. Inputs are small
// crops of handwritten headings; engines return plain text with optional
// word boxes.
package ocr
