// Package vision turns camera frames and still images into Pokémon labels.
//
// Every front end shares the same pipeline: resize to the model's square
// input, lay the pixels out as CHW float32 planes in [0,1], run the ONNX
// classifier and pick the arg-max class from the label list.
package vision
