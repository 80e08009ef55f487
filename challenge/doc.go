// Package challenge generates the answer text of a human-verification challenge and
// renders it into a noisy PNG.
//
// # Pipeline
//
//  1. [NewAlphabet] removes excluded glyphs from the base alphanumeric set.
//  2. The remaining glyphs are shuffled with [random.Shuffle].
//  3. Length glyphs are sampled with replacement to form the answer.
//  4. A [Renderer] draws the answer over line, speckle and dot noise.
//
// Every randomized choice, including noise colors and line endpoints, is drawn
// from the [random.Source] handed to the generator and renderer.
//
// # What this package must NOT do
//
//   - Keep generated answers after returning them.
//   - Read fonts from the filesystem (the embedded Go Bold face is used).
package challenge
