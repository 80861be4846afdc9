package vm

import "runtime"

func init() {
	registerNative("java/lang/Runtime", "availableProcessors", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return IntValue(int32(runtime.NumCPU())), true, nil
	})

	// maxMemory reports a fixed 4GiB ceiling: this VM's heap grows
	// monotonically and is never actually bounded, so the figure is a
	// plausible constant rather than a measured one (spec.md §4.9).
	registerNative("java/lang/Runtime", "maxMemory", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return LongValue(4 << 30), true, nil
	})
}
