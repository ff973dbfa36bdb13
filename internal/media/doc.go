// Package media holds the value types shared by the playout pipeline:
// tick-based durations, frame dimensions and timecodes.
//
// A tick is 100ns, so one second is TicksPerSecond ticks. Capture devices
// report frame durations and timecodes in this unit and the pacer keeps its
// accumulator in it, which avoids rounding drift from repeated float math.
package media
