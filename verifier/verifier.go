package verifier

import (
	"yama/parcel"
	"yama/typedesc"
)

// Verify runs the descriptor layer against desc and, only if that layer
// raises nothing and desc has a bytecode body, the bytecode layer; it
// reports whether desc passes, plus every signal raised (empty on success). qualName is the
// qualified name the loader is verifying desc under (used to type
// self-referencing put_arg(dst, 0) instructions); meta is the installing
// parcel's metadata, used for qualified-name head validation.
func Verify(qualName string, desc *typedesc.Descriptor, meta parcel.Metadata) (bool, []Signal) {
	signals := verifyDescriptorLayer(desc, meta)
	if len(signals) > 0 {
		return false, signals
	}

	if desc.Kind().IsCallable() && desc.Body().IsBytecode() {
		signals = append(signals, verifyBytecodeLayer(qualName, desc)...)
	}

	return len(signals) == 0, signals
}
