package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RenderWorkers подбирает число параллельных воркеров для загрузки и
// масштабирования изображений. Ограничиваемся и ядрами, и доступной памятью:
// каждый воркер держит в памяти примерно два RGBA-кадра целевого разрешения
// (исходник + letterbox-буфер).
func RenderWorkers(frameWidth, frameHeight int) int {
	workers := runtime.NumCPU()
	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		workers = counts
	}

	frameBytes := uint64(frameWidth) * uint64(frameHeight) * 4 * 2
	if frameBytes > 0 {
		if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
			// Не занимаем больше половины доступной памяти под кадры.
			byMem := int(vm.Available / 2 / frameBytes)
			if byMem < 1 {
				byMem = 1
			}
			if byMem < workers {
				workers = byMem
			}
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}
