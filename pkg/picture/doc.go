// Package picture holds planar 4:2:0 pictures and compares them bit-exactly.
package picture
