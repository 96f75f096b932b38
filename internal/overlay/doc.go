// Package overlay implements the developer overlay controller.
//
// The controller owns the ordered set of plugins hosted on the control bar,
// the bar's visibility, and the rule that at most one plugin panel is shown
// at a time. Plugins are registered as Descriptors and wrapped in a
// PluginState whose lifecycle is:
//
//	Loading -> Ready
//	Loading -> Error (terminal)
//
// Only Ready plugins can be activated. Activating a plugin first deactivates
// the current one, and a plugin may veto its own deactivation through its
// BeforeDeactivate hook.
//
// Basic usage:
//
//	ctrl := overlay.NewController(overlay.DefaultConfig(),
//	    overlay.WithLogger(logger),
//	    overlay.WithNotifier(bridge),
//	)
//	defer ctrl.Close()
//
//	if err := ctrl.Initialize(descriptors); err != nil {
//	    return err
//	}
//
//	st, _ := ctrl.Plugin("devbar:inspect")
//	on := true
//	_ = ctrl.TogglePlugin(ctx, st, &on)
//
// Each plugin receives a private event.Channel. The controller publishes
// event.TypePluginToggled on it and listens for event.TypeToggleNotification
// to drive the plugin's badge.
package overlay
