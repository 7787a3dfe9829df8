package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: 200, B: uint8(y * 32), A: 255})
		}
	}
	return img
}

func encodePNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("classifyUpload", func() {
	DescribeTable("picking a decoder",
		func(data []byte, contentType string, want uploadKind) {
			Expect(classifyUpload(data, contentType)).To(Equal(want))
		},
		Entry("PNG magic", encodePNG(), "", kindPNG),
		Entry("PNG mislabelled as JPEG", encodePNG(), "image/jpeg", kindPNG),
		Entry("JPEG", encodeJPEG(), "image/jpeg", kindRaster),
		Entry("PDF magic", []byte("%PDF-1.7"), "application/octet-stream", kindPDF),
		Entry("PDF content type", []byte("data"), " Application/PDF ", kindPDF),
		Entry("HEIC brand", append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...), "", kindHEIC),
		Entry("HEIF content type", []byte("data"), "image/heif", kindHEIC),
	)
})

var _ = Describe("preparePNG", func() {
	It("should return a decodable grayscale PNG when enhancing", func() {
		out, err := preparePNG(encodeJPEG(), "image/jpeg", true)
		Expect(err).NotTo(HaveOccurred())
		img, err := png.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(16))
		r, g, b, _ := img.At(3, 3).RGBA()
		Expect(r).To(Equal(g))
		Expect(g).To(Equal(b))
	})

	It("should pass a PNG through when not enhancing", func() {
		data := encodePNG()
		out, err := preparePNG(data, "image/png", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("should convert a JPEG to PNG", func() {
		out, err := preparePNG(encodeJPEG(), " IMAGE/JPEG ", false)
		Expect(err).NotTo(HaveOccurred())
		img, err := png.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(16))
	})

	It("should reject data that is not an image", func() {
		_, err := preparePNG([]byte("not an image"), "image/jpeg", false)
		Expect(err).To(MatchError(ContainSubstring("unsupported image")))
	})
})

var _ = Describe("HEIC detection", func() {
	It("should detect the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should ignore short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("should detect HEIC MIME types", func() {
		Expect(isHEICMimeType(" image/HEIF ")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})
})
