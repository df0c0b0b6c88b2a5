package generator

import (
	"fmt"
	"strings"
)

// transposeTile is the shared-memory tile edge. The +1 pad on the inner
// dimension avoids bank conflicts on the transposed read.
const transposeTile = 16

// emitTranspose writes a tiled rows x cols transpose kernel. Dimensions
// arrive as launch arguments; one compiled kernel serves every geometry.
func emitTranspose(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	inParam, outParam := bufferParams(spec.Layout)
	params := fmt.Sprintf("%s, %s, unsigned int rows, unsigned int cols", inParam, outParam)
	if spec.Stride == Strided {
		params += ", unsigned int istride, unsigned int ostride"
	}
	srcIdx := "y * cols + x"
	dstIdx := "y * rows + x"
	if spec.Stride == Strided {
		srcIdx = "(" + srcIdx + ") * istride"
		dstIdx = "(" + dstIdx + ") * ostride"
	}

	fmt.Fprintf(b, "extern \"C\" __global__ void %s(%s)\n{\n", entryPoint, params)
	fmt.Fprintf(b, "    __shared__ complex_t tile[%du][%du];\n", transposeTile, transposeTile+1)
	fmt.Fprintf(b, `    unsigned int x = blockIdx.x * %[1]du + threadIdx.x;
    unsigned int y = blockIdx.y * %[1]du + threadIdx.y;
    if (x < cols && y < rows) {
        tile[threadIdx.y][threadIdx.x] = %[2]s;
    }
    __syncthreads();
    x = blockIdx.y * %[1]du + threadIdx.x;
    y = blockIdx.x * %[1]du + threadIdx.y;
    if (x < rows && y < cols) {
        %[3]s
    }
}
`, transposeTile, loadExpr(spec.Layout, srcIdx), storeStmt(spec.Layout, dstIdx, "tile[threadIdx.x][threadIdx.y]"))
	return nil
}
