package oleobj

import "path/filepath"

// Ole10NativeResult is what DecodeOle10Native produces for one
// \1Ole10Native storage: either a file to write out (Format == PackageFile
// with Data/FileName populated), a synthesized PBrush bitmap, or a
// deliberately-skipped object (ok == false, err == nil).
type Ole10NativeResult struct {
	FileName string
	FilePath string
	Data     []byte
}

// userTypesToSkip are recognized AnsiUserType values that this module
// deliberately produces no output for.
var userTypesToSkip = map[string]bool{
	"Pakket":                    true,
	"MathType 5.0 Equation":     true,
	"MS_ClipArt_Gallery":        true,
	"Microsoft ClipArt Gallery": true,
	"Bitmap Image":              true,
}

var paintbrushUserTypes = map[string]bool{
	"PBrush":                true,
	"Paintbrush-Bild":       true,
	"Paintbrush-afbeelding": true,
}

// DecodeOle10Native decodes a storage's \1Ole10Native stream, using the
// sibling \1CompObj stream's AnsiUserType (when present) to decide how to
// interpret the payload. ok is false (with err nil) for the recognized
// "produces nothing" user types.
func DecodeOle10Native(nativeBlob []byte, compObj *CompObjStream) (*Ole10NativeResult, bool, error) {
	if compObj == nil {
		pkg, err := DecodePackage(nativeBlob)
		if err != nil {
			return nil, false, Errf(ObjectTypeNotSupported, err, "ole10native: no CompObj and payload is not a Package")
		}
		return packageToResult(pkg)
	}

	switch compObj.AnsiUserType {
	case "OLE Package":
		pkg, err := DecodePackage(nativeBlob)
		if err != nil {
			return nil, false, err
		}
		return packageToResult(pkg)

	default:
		if paintbrushUserTypes[compObj.AnsiUserType] {
			if len(nativeBlob) < 4 {
				return nil, false, Errf(CorruptFile, nil, "ole10native: PBrush blob shorter than length prefix")
			}
			return &Ole10NativeResult{
				FileName: "Embedded PBrush image.bmp",
				Data:     nativeBlob[4:],
			}, true, nil
		}
		if userTypesToSkip[compObj.AnsiUserType] {
			return nil, false, nil
		}
		return nil, false, Errf(ObjectTypeNotSupported, nil, "ole10native: unsupported AnsiUserType %q", compObj.AnsiUserType)
	}
}

func packageToResult(pkg *Package) (*Ole10NativeResult, bool, error) {
	if pkg.Format != PackageFile {
		// Link packages carry no payload to extract.
		return nil, false, nil
	}
	return &Ole10NativeResult{
		FileName: filepath.Base(pkg.FileName),
		FilePath: pkg.FilePath,
		Data:     pkg.Data,
	}, true, nil
}
